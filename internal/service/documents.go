package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"machinery-backend/internal/blob"
	"machinery-backend/internal/model"
)

// Upload describes a file attached to a machine.
type Upload struct {
	Kind        string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Documents stores machine files in the blob store and tracks them in the database.
type Documents struct {
	Deps
	blobs blob.Store
}

func NewDocuments(deps Deps, blobs blob.Store) *Documents {
	deps.fill()
	return &Documents{Deps: deps, blobs: blobs}
}

func (s *Documents) Upload(ctx context.Context, actor Actor, machineID int64, up Upload) (*model.MachineDocument, error) {
	kind := model.DocumentKind(up.Kind)
	if up.Kind == "" {
		kind = model.DocumentOther
	}
	name := filepath.Base(strings.TrimSpace(up.FileName))

	verr := &model.ValidationError{}
	if !kind.IsValid() {
		verr.Add("kind", fmt.Sprintf("unknown document kind %q", up.Kind))
	}
	verr.Required("file", up.Body == nil || name == "" || name == "." || name == "/")
	if err := verr.Err(); err != nil {
		return nil, err
	}
	if _, err := s.Store.GetMachine(ctx, machineID); err != nil {
		return nil, err
	}

	doc := &model.MachineDocument{
		MachineID:   machineID,
		Kind:        kind,
		FileName:    name,
		ContentType: up.ContentType,
		Size:        up.Size,
		BlobKey:     fmt.Sprintf("machines/%d/%s%s", machineID, uuid.NewString(), strings.ToLower(filepath.Ext(name))),
		UploadedBy:  actor.UserID,
	}
	if err := s.blobs.Save(ctx, doc.BlobKey, up.Body, up.ContentType); err != nil {
		return nil, err
	}
	if err := s.Store.CreateDocument(ctx, doc); err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), doc.BlobKey); delErr != nil {
			s.Log.Warn("failed to remove orphaned blob", zap.String("key", doc.BlobKey), zap.Error(delErr))
		}
		return nil, err
	}

	s.Log.Info("document uploaded", zap.Int64("document_id", doc.ID), zap.Int64("machine_id", machineID),
		zap.String("kind", string(kind)), zap.Int64("size", up.Size))
	return doc, nil
}

// Open returns a document's metadata and body. The caller closes the body.
func (s *Documents) Open(ctx context.Context, id int64) (*model.MachineDocument, io.ReadCloser, error) {
	doc, err := s.Store.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.blobs.Open(ctx, doc.BlobKey)
	if err != nil {
		return nil, nil, err
	}
	return doc, body, nil
}

func (s *Documents) List(ctx context.Context, machineID int64) ([]model.MachineDocument, error) {
	if _, err := s.Store.GetMachine(ctx, machineID); err != nil {
		return nil, err
	}
	return s.Store.ListDocuments(ctx, machineID)
}
