package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/groupe-jds/doku-seal/config"
	"github.com/groupe-jds/doku-seal/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ElasticClient mirrors envelopes into an Elasticsearch index
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// EnvelopeDocument is the indexed shape of an envelope
type EnvelopeDocument struct {
	ID             string              `json:"id"`
	SecondaryID    string              `json:"secondary_id"`
	ExternalID     *string             `json:"external_id,omitempty"`
	Title          string              `json:"title"`
	Status         string              `json:"status"`
	Visibility     string              `json:"visibility"`
	UserID         int64               `json:"user_id"`
	TeamID         int64               `json:"team_id"`
	FolderID       *string             `json:"folder_id,omitempty"`
	SigningOrder   string              `json:"signing_order"`
	Subject        *string             `json:"subject,omitempty"`
	Recipients     []RecipientDocument `json:"recipients"`
	AwaitingAction int                 `json:"awaiting_action"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// RecipientDocument is the indexed shape of a recipient
type RecipientDocument struct {
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	Role     string     `json:"role"`
	SignedAt *time.Time `json:"signed_at,omitempty"`
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// NewEnvelopeDocument converts an envelope into its indexed shape
func NewEnvelopeDocument(env *models.Envelope) EnvelopeDocument {
	meta := env.Meta()
	doc := EnvelopeDocument{
		ID:           env.ID,
		SecondaryID:  env.SecondaryID,
		ExternalID:   env.ExternalID,
		Title:        env.Title,
		Status:       string(env.Status),
		Visibility:   string(env.Visibility),
		UserID:       env.UserID,
		TeamID:       env.TeamID,
		FolderID:     env.FolderID,
		SigningOrder: string(meta.SigningOrder),
		Subject:      meta.Subject,
		Recipients:   make([]RecipientDocument, 0, len(env.Recipients)),
		CreatedAt:    env.CreatedAt,
		UpdatedAt:    env.UpdatedAt,
	}
	for _, r := range env.Recipients {
		doc.Recipients = append(doc.Recipients, RecipientDocument{
			Email:    r.Email,
			Name:     r.Name,
			Role:     string(r.Role),
			SignedAt: r.SignedAt,
		})
		if r.Role.RequiresAction() && r.SignedAt == nil {
			doc.AwaitingAction++
		}
	}
	return doc
}

// IndexEnvelope indexes an envelope document keyed by the envelope id
func (c *ElasticClient) IndexEnvelope(ctx context.Context, env *models.Envelope) error {
	body, err := json.Marshal(NewEnvelopeDocument(env))
	if err != nil {
		return errors.Wrap(err, "failed to marshal envelope document")
	}

	req := esapi.IndexRequest{
		Index:      c.indexName(),
		DocumentID: env.ID,
		Body:       bytes.NewReader(body),
		Refresh:    c.config.Refresh,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError(res, "index")
	}

	log.Debug().Str("envelope_id", env.ID).Msg("Envelope indexed")
	return nil
}

// DeleteEnvelope removes an envelope document. A missing document is not an error.
func (c *ElasticClient) DeleteEnvelope(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{
		Index:      c.indexName(),
		DocumentID: id,
		Refresh:    c.config.Refresh,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch delete request")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return responseError(res, "delete")
	}
	return nil
}

// Ping checks that the cluster answers
func (c *ElasticClient) Ping(ctx context.Context) error {
	res, err := esapi.PingRequest{}.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to ping Elasticsearch")
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Errorf("Elasticsearch ping returned %s", res.Status())
	}
	return nil
}

func (c *ElasticClient) indexName() string {
	return config.FormatIndex(c.config, c.config.Index)
}

func responseError(res *esapi.Response, op string) error {
	var e map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
		return errors.Wrapf(err, "failed to parse Elasticsearch %s error response", op)
	}
	return errors.Errorf("Elasticsearch %s error: %v", op, e)
}
