package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinery-backend/internal/blob"
	"machinery-backend/internal/model"
)

func TestDocuments_UploadOpenDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	blobs, err := blob.NewFilesystem(t.TempDir())
	require.NoError(t, err)
	docs := NewDocuments(f.deps, blobs)
	reg := NewRegistry(f.deps, f.audit, blobs)
	m := f.machine(t, "MAQ-001", model.MachineOperational)

	doc, err := docs.Upload(ctx, f.tech, m.ID, Upload{
		Kind:        "manual",
		FileName:    "../../Manual Torno.PDF",
		ContentType: "application/pdf",
		Size:        11,
		Body:        strings.NewReader("%PDF-manual"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.DocumentManual, doc.Kind)
	assert.Equal(t, "Manual Torno.PDF", doc.FileName)
	assert.True(t, strings.HasPrefix(doc.BlobKey, "machines/"))
	assert.True(t, strings.HasSuffix(doc.BlobKey, ".pdf"))

	got, body, err := docs.Open(ctx, doc.ID)
	require.NoError(t, err)
	content, err := io.ReadAll(body)
	require.NoError(t, body.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-manual", string(content))
	assert.Equal(t, doc.ID, got.ID)

	listed, err := docs.List(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, reg.Delete(ctx, f.admin, m.ID))
	_, err = blobs.Open(ctx, doc.BlobKey)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, _, err = docs.Open(ctx, doc.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDocuments_UploadValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	blobs, err := blob.NewFilesystem(t.TempDir())
	require.NoError(t, err)
	docs := NewDocuments(f.deps, blobs)
	m := f.machine(t, "MAQ-001", model.MachineOperational)

	_, err = docs.Upload(ctx, f.tech, m.ID, Upload{Kind: "video"})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"kind", "file"}, verr.Fields())

	_, err = docs.Upload(ctx, f.tech, 999, Upload{FileName: "a.txt", Body: strings.NewReader("a")})
	assert.ErrorIs(t, err, model.ErrNotFound)

	doc, err := docs.Upload(ctx, f.tech, m.ID, Upload{FileName: "notas.txt", Body: strings.NewReader("a")})
	require.NoError(t, err)
	assert.Equal(t, model.DocumentOther, doc.Kind)

	_, err = docs.List(ctx, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
