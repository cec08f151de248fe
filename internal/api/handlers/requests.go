package handlers

import (
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/groupe-jds/doku-seal/internal/services"
)

type recipientRequest struct {
	Email string `json:"email" binding:"required,email,max=320"`
	Name  string `json:"name" binding:"required,max=255"`
	Role  string `json:"role" binding:"omitempty,recipient_role"`
}

func (r recipientRequest) input() services.RecipientInput {
	return services.RecipientInput{
		Email: r.Email,
		Name:  r.Name,
		Role:  models.Role(r.Role),
	}
}

type createEnvelopeRequest struct {
	Title              string             `json:"title" binding:"required,max=255"`
	ExternalID         *string            `json:"externalId" binding:"omitempty,max=255"`
	Visibility         string             `json:"visibility" binding:"omitempty,visibility"`
	Recipients         []recipientRequest `json:"recipients" binding:"required,min=1,dive"`
	Subject            *string            `json:"subject" binding:"omitempty,max=255"`
	Message            *string            `json:"message" binding:"omitempty,max=5000"`
	RedirectURL        *string            `json:"redirectUrl" binding:"omitempty,url,max=2048"`
	SigningOrder       string             `json:"signingOrder" binding:"omitempty,signing_order"`
	DistributionMethod string             `json:"distributionMethod" binding:"omitempty,distribution"`
	FolderID           *string            `json:"folderId" binding:"omitempty,max=36"`
}

func (r createEnvelopeRequest) input() services.CreateEnvelopeInput {
	recipients := make([]services.RecipientInput, 0, len(r.Recipients))
	for _, rr := range r.Recipients {
		recipients = append(recipients, rr.input())
	}
	return services.CreateEnvelopeInput{
		Title:              r.Title,
		ExternalID:         r.ExternalID,
		Visibility:         models.Visibility(r.Visibility),
		SigningOrder:       models.SigningOrder(r.SigningOrder),
		DistributionMethod: models.DistributionMethod(r.DistributionMethod),
		Subject:            r.Subject,
		Message:            r.Message,
		RedirectURL:        r.RedirectURL,
		FolderID:           r.FolderID,
		Recipients:         recipients,
	}
}

type updateEnvelopeRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Visibility  *string `json:"visibility" binding:"omitempty,visibility"`
	FolderID    *string `json:"folderId" binding:"omitempty,max=36"`
	Subject     *string `json:"subject" binding:"omitempty,max=255"`
	Message     *string `json:"message" binding:"omitempty,max=5000"`
	RedirectURL *string `json:"redirectUrl" binding:"omitempty,max=2048"`
}

func (r updateEnvelopeRequest) input() services.UpdateEnvelopeInput {
	in := services.UpdateEnvelopeInput{
		Title:       r.Title,
		FolderID:    r.FolderID,
		Subject:     r.Subject,
		Message:     r.Message,
		RedirectURL: r.RedirectURL,
	}
	if r.Visibility != nil {
		v := models.Visibility(*r.Visibility)
		in.Visibility = &v
	}
	return in
}

type listEnvelopesQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status" binding:"omitempty,envelope_status"`
	FolderID string `form:"folderId" binding:"max=36"`
	Search   string `form:"search" binding:"max=255"`
}

func (q listEnvelopesQuery) input() services.ListEnvelopesInput {
	return services.ListEnvelopesInput{
		Status:   models.EnvelopeStatus(q.Status),
		FolderID: q.FolderID,
		Search:   q.Search,
		Page:     q.Page,
		Limit:    q.Limit,
	}
}

type resendEnvelopeRequest struct {
	RecipientIDs []string `json:"recipientIds" binding:"required,min=1,dive,required"`
}

type addRecipientRequest struct {
	EnvelopeID string `json:"envelopeId" binding:"required"`
	Email      string `json:"email" binding:"required,email,max=320"`
	Name       string `json:"name" binding:"required,max=255"`
	Role       string `json:"role" binding:"omitempty,recipient_role"`
}

func (r addRecipientRequest) input() services.RecipientInput {
	return services.RecipientInput{
		Email: r.Email,
		Name:  r.Name,
		Role:  models.Role(r.Role),
	}
}

type updateRecipientRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1,max=255"`
	Role *string `json:"role" binding:"omitempty,recipient_role"`
}

func (r updateRecipientRequest) input() services.UpdateRecipientInput {
	in := services.UpdateRecipientInput{Name: r.Name}
	if r.Role != nil {
		role := models.Role(*r.Role)
		in.Role = &role
	}
	return in
}

type addFieldRequest struct {
	EnvelopeID  string   `json:"envelopeId" binding:"required"`
	RecipientID string   `json:"recipientId" binding:"required"`
	Type        string   `json:"type" binding:"required,field_type"`
	PageNumber  int      `json:"pageNumber" binding:"required,min=1"`
	PageX       *float64 `json:"pageX" binding:"required,min=0,max=1"`
	PageY       *float64 `json:"pageY" binding:"required,min=0,max=1"`
	PageWidth   float64  `json:"pageWidth" binding:"required,gt=0"`
	PageHeight  float64  `json:"pageHeight" binding:"required,gt=0"`
	Required    *bool    `json:"required"`
}

func (r addFieldRequest) input() services.AddFieldInput {
	return services.AddFieldInput{
		EnvelopeID:  r.EnvelopeID,
		RecipientID: r.RecipientID,
		Type:        models.FieldType(r.Type),
		PageNumber:  r.PageNumber,
		PageX:       *r.PageX,
		PageY:       *r.PageY,
		PageWidth:   r.PageWidth,
		PageHeight:  r.PageHeight,
		Required:    r.Required,
	}
}

type updateFieldRequest struct {
	RecipientID *string  `json:"recipientId" binding:"omitempty,min=1"`
	Type        *string  `json:"type" binding:"omitempty,field_type"`
	PageNumber  *int     `json:"pageNumber" binding:"omitempty,min=1"`
	PageX       *float64 `json:"pageX" binding:"omitempty,min=0,max=1"`
	PageY       *float64 `json:"pageY" binding:"omitempty,min=0,max=1"`
	PageWidth   *float64 `json:"pageWidth" binding:"omitempty,gt=0"`
	PageHeight  *float64 `json:"pageHeight" binding:"omitempty,gt=0"`
	Required    *bool    `json:"required"`
}

func (r updateFieldRequest) input() services.UpdateFieldInput {
	in := services.UpdateFieldInput{
		RecipientID: r.RecipientID,
		PageNumber:  r.PageNumber,
		PageX:       r.PageX,
		PageY:       r.PageY,
		PageWidth:   r.PageWidth,
		PageHeight:  r.PageHeight,
		Required:    r.Required,
	}
	if r.Type != nil {
		t := models.FieldType(*r.Type)
		in.Type = &t
	}
	return in
}
