package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"example.com/backstage/services/tenders/internal/apperrors"
	"example.com/backstage/services/tenders/internal/models"
	"example.com/backstage/services/tenders/internal/sourcing"

	"github.com/rs/zerolog/log"
)

// DocumentLimits are the upload ceilings
type DocumentLimits struct {
	AllowedExtensions map[string]struct{}
	MaxSize           int64
	MaxTotalSize      int64
}

// NewDocumentLimits normalises the allowed extensions to lower case without a dot
func NewDocumentLimits(extensions []string, maxSize, maxTotalSize int64) DocumentLimits {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			allowed[ext] = struct{}{}
		}
	}
	return DocumentLimits{AllowedExtensions: allowed, MaxSize: maxSize, MaxTotalSize: maxTotalSize}
}

// DocumentKey encodes a remote attachment as an opaque document id
func DocumentKey(fileID int64, fileName string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("%d-%s", fileID, fileName)))
}

// ParseDocumentKey reverses DocumentKey
func ParseDocumentKey(key string) (int64, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(key, "="))
	if err != nil {
		return 0, "", apperrors.Validation("Invalid document id '%s'", key)
	}
	idPart, name, ok := strings.Cut(string(raw), "-")
	if !ok || name == "" {
		return 0, "", apperrors.Validation("Invalid document id '%s'", key)
	}
	fileID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, "", apperrors.Validation("Invalid document id '%s'", key)
	}
	return fileID, name, nil
}

// DocumentPolicy validates uploads and reads the attachments of the remote record
type DocumentPolicy struct {
	limits   DocumentLimits
	sourcing sourcing.Client
}

// NewDocumentPolicy creates a DocumentPolicy
func NewDocumentPolicy(limits DocumentLimits, client sourcing.Client) *DocumentPolicy {
	return &DocumentPolicy{limits: limits, sourcing: client}
}

// ValidateFile checks the extension first and then the individual size
func (p *DocumentPolicy) ValidateFile(fileName string, size int64) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if _, ok := p.limits.AllowedExtensions[ext]; !ok {
		return apperrors.Validation("File '%s' is not one of the allowed types", fileName)
	}
	if size > p.limits.MaxSize {
		return apperrors.Validation("File '%s' is %d bytes, the maximum allowed is %d bytes", fileName, size, p.limits.MaxSize)
	}
	return nil
}

// ValidateTotal checks the new file against the attachments already on the record
func (p *DocumentPolicy) ValidateTotal(existing []DocumentSummary, size int64) error {
	total := size
	for _, doc := range existing {
		total += doc.FileSize
	}
	if total > p.limits.MaxTotalSize {
		return apperrors.Validation("Total size of all documents would be %d bytes, the maximum allowed is %d bytes", total, p.limits.MaxTotalSize)
	}
	return nil
}

func remoteRecord(event *models.Event) error {
	if !event.HasRemoteRecord() {
		return apperrors.IllegalState("Event '%s' has no remote record", event.PublicID())
	}
	return nil
}

// List returns the buyer and supplier attachments of the event
func (p *DocumentPolicy) List(ctx context.Context, event *models.Event) ([]DocumentSummary, error) {
	if err := remoteRecord(event); err != nil {
		return nil, err
	}
	rfx, err := p.sourcing.GetRfx(ctx, event.RemoteID())
	if err != nil {
		return nil, err
	}

	docs := make([]DocumentSummary, 0, len(rfx.BuyerAttachments())+len(rfx.SellerAttachments()))
	docs = appendAttachments(docs, rfx.BuyerAttachments(), sourcing.AudienceBuyer)
	docs = appendAttachments(docs, rfx.SellerAttachments(), sourcing.AudienceSupplier)
	return docs, nil
}

func appendAttachments(docs []DocumentSummary, attachments []sourcing.Attachment, audience sourcing.Audience) []DocumentSummary {
	for _, a := range attachments {
		docs = append(docs, DocumentSummary{
			ID:          DocumentKey(a.FileID, a.FileName),
			FileName:    a.FileName,
			FileSize:    a.FileSize,
			Description: a.FileDescription,
			Audience:    audience,
		})
	}
	return docs
}

// Upload validates the file, sends it and returns the listing entry created for it
func (p *DocumentPolicy) Upload(ctx context.Context, event *models.Event, upload DocumentUpload) (*DocumentSummary, error) {
	if !upload.Audience.Valid() {
		return nil, apperrors.Validation("Unknown document audience '%s'", upload.Audience)
	}
	if err := p.ValidateFile(upload.FileName, upload.Size); err != nil {
		return nil, err
	}

	existing, err := p.List(ctx, event)
	if err != nil {
		return nil, err
	}
	if err := p.ValidateTotal(existing, upload.Size); err != nil {
		return nil, err
	}

	update := sourcing.NewRfxUpdate(event.RemoteID(), event.RemoteReference()).
		WithAttachment(upload.Audience, upload.FileName, upload.Description)
	if err := p.sourcing.UploadAttachment(ctx, update, upload.FileName, upload.Content); err != nil {
		return nil, err
	}

	docs, err := p.List(ctx, event)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].FileName == upload.FileName && docs[i].Audience == upload.Audience {
			return &docs[i], nil
		}
	}

	log.Warn().
		Str("event_id", event.PublicID()).
		Str("file_name", upload.FileName).
		Msg("Uploaded document missing from remote listing")
	return nil, apperrors.NotFound("Document '%s' was uploaded but could not be found on event '%s'", upload.FileName, event.PublicID())
}

// Get downloads the attachment identified by a document key
func (p *DocumentPolicy) Get(ctx context.Context, event *models.Event, documentKey string) (*DocumentAttachment, error) {
	fileID, fileName, err := ParseDocumentKey(documentKey)
	if err != nil {
		return nil, err
	}
	if err := remoteRecord(event); err != nil {
		return nil, err
	}

	payload, err := p.sourcing.GetAttachment(ctx, fileID, fileName)
	if err != nil {
		return nil, err
	}
	contentType := payload.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(payload.Data)
	}
	return &DocumentAttachment{FileName: payload.FileName, ContentType: contentType, Data: payload.Data}, nil
}
