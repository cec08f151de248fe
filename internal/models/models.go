package models

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Owner identifies the user and team a request acts for
type Owner struct {
	UserID int64
	TeamID int64
}

// Envelope is a set of documents sent to recipients for signature
type Envelope struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	SecondaryID string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"secondaryId"`
	ExternalID  *string        `json:"externalId"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Status      EnvelopeStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Visibility  Visibility     `gorm:"type:varchar(32);not null" json:"visibility"`
	UserID      int64          `gorm:"not null;index:idx_envelopes_owner" json:"userId"`
	TeamID      int64          `gorm:"not null;index:idx_envelopes_owner" json:"teamId"`
	FolderID    *string        `gorm:"type:varchar(36);index" json:"folderId"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime;index" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	DocumentMeta *DocumentMeta  `gorm:"foreignKey:EnvelopeID" json:"documentMeta,omitempty"`
	Recipients   []Recipient    `gorm:"foreignKey:EnvelopeID" json:"recipients"`
	Fields       []Field        `gorm:"foreignKey:EnvelopeID" json:"fields,omitempty"`
	Items        []EnvelopeItem `gorm:"foreignKey:EnvelopeID" json:"items,omitempty"`

	// FieldCount is filled by list queries only
	FieldCount *int64 `gorm:"-" json:"fieldCount,omitempty"`
}

// DocumentMeta holds the delivery settings of an envelope
type DocumentMeta struct {
	ID                 string             `gorm:"type:varchar(36);primaryKey" json:"id"`
	EnvelopeID         string             `gorm:"type:varchar(36);not null;uniqueIndex" json:"-"`
	Subject            *string            `json:"subject"`
	Message            *string            `json:"message"`
	RedirectURL        *string            `gorm:"column:redirect_url" json:"redirectUrl"`
	SigningOrder       SigningOrder       `gorm:"type:varchar(16);not null" json:"signingOrder"`
	DistributionMethod DistributionMethod `gorm:"type:varchar(16);not null" json:"distributionMethod"`
}

// Recipient is a person who receives an envelope
type Recipient struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	EnvelopeID   string     `gorm:"type:varchar(36);not null;index" json:"envelopeId"`
	Email        string     `gorm:"type:varchar(320);not null" json:"email"`
	Name         string     `gorm:"type:varchar(255);not null" json:"name"`
	Role         Role       `gorm:"type:varchar(16);not null" json:"role"`
	SigningOrder *int       `json:"signingOrder"`
	SignedAt     *time.Time `json:"signedAt"`
	Token        string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Field is a placeholder on a document page assigned to one recipient
type Field struct {
	ID             string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	EnvelopeID     string     `gorm:"type:varchar(36);not null;index" json:"envelopeId"`
	RecipientID    string     `gorm:"type:varchar(36);not null;index" json:"recipientId"`
	EnvelopeItemID *string    `gorm:"type:varchar(36)" json:"envelopeItemId"`
	Type           FieldType  `gorm:"type:varchar(16);not null" json:"type"`
	PageNumber     int        `gorm:"not null" json:"pageNumber"`
	PageX          float64    `gorm:"not null" json:"pageX"`
	PageY          float64    `gorm:"not null" json:"pageY"`
	PageWidth      float64    `gorm:"not null" json:"pageWidth"`
	PageHeight     float64    `gorm:"not null" json:"pageHeight"`
	Required       bool       `gorm:"not null" json:"required"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	Recipient      *Recipient `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
}

// DocumentData stores uploaded document content
type DocumentData struct {
	ID          string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	Type        DocumentDataType `gorm:"type:varchar(16);not null" json:"type"`
	Data        string           `gorm:"type:text;not null" json:"-"`
	InitialData string           `gorm:"type:text;not null" json:"-"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"createdAt"`
}

// EnvelopeItem links a stored document to an envelope
type EnvelopeItem struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	EnvelopeID     string    `gorm:"type:varchar(36);not null;index" json:"envelopeId"`
	DocumentDataID string    `gorm:"type:varchar(36);not null" json:"documentDataId"`
	Title          string    `gorm:"type:varchar(255);not null" json:"title"`
	ItemOrder      int       `gorm:"column:item_order;not null" json:"order"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// Meta returns the envelope's document metadata or defaults when it was not loaded
func (e *Envelope) Meta() DocumentMeta {
	if e.DocumentMeta != nil {
		return *e.DocumentMeta
	}
	return DocumentMeta{
		EnvelopeID:         e.ID,
		SigningOrder:       SigningOrderParallel,
		DistributionMethod: DistributionEmail,
	}
}

// IsDeleted reports whether the envelope has been soft deleted
func (e *Envelope) IsDeleted() bool {
	return e.DeletedAt.Valid
}

// SetupModels runs migrations for every stored model
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Envelope{},
		&DocumentMeta{},
		&Recipient{},
		&Field{},
		&DocumentData{},
		&EnvelopeItem{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
