package intake

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyunseo/mediascan/internal/models"
	"github.com/hyunseo/mediascan/internal/store"
)

func newIntake(t *testing.T) (*Intake, *store.Store, string) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	st := store.New(logger)
	dir := t.TempDir()
	in, err := New(dir, st, logger)
	require.NoError(t, err)
	return in, st, dir
}

func TestIntake_AddFiles(t *testing.T) {
	t.Run("accepts supported media and rejects the rest", func(t *testing.T) {
		in, st, dir := newIntake(t)

		records, err := in.AddFiles([]Candidate{
			{Name: "photo.png", ContentType: "image/png", Data: []byte("img")},
			{Name: "notes.txt", ContentType: "text/plain", Data: []byte("txt")},
			{Name: "clip.mp4", ContentType: "video/mp4", Data: []byte("vid")},
			{Name: "talk.mp3", ContentType: "audio/mpeg", Data: []byte("aud")},
		})
		require.NoError(t, err)
		require.Len(t, records, 3)

		assert.Equal(t, models.MediaTypeImage, records[0].MediaType)
		assert.Equal(t, models.MediaTypeVideo, records[1].MediaType)
		assert.Equal(t, models.MediaTypeAudio, records[2].MediaType)
		assert.Equal(t, 3, st.Len())

		// Every accepted file gets a materialized preview copy.
		for _, rec := range records {
			assert.FileExists(t, rec.PreviewPath)
			assert.Equal(t, filepath.Dir(rec.PreviewPath), dir)
			assert.Equal(t, models.StatusIdle, rec.Status)
			assert.Equal(t, models.ModeAll, rec.Mode)
			assert.NotEmpty(t, rec.ID)
		}
	})

	t.Run("sniffs the type from the extension", func(t *testing.T) {
		in, _, _ := newIntake(t)

		records, err := in.AddFiles([]Candidate{
			{Name: "scan.jpg", Data: []byte("img")},
		})
		require.NoError(t, err)
		assert.Equal(t, models.MediaTypeImage, records[0].MediaType)
	})

	t.Run("nothing accepted returns ErrNoSupportedFiles", func(t *testing.T) {
		in, st, _ := newIntake(t)

		_, err := in.AddFiles([]Candidate{
			{Name: "doc.pdf", ContentType: "application/pdf", Data: []byte("pdf")},
		})
		assert.ErrorIs(t, err, ErrNoSupportedFiles)
		assert.Equal(t, 0, st.Len())
	})
}

func TestIntake_AddPath(t *testing.T) {
	in, st, _ := newIntake(t)

	src := filepath.Join(t.TempDir(), "drop.png")
	require.NoError(t, os.WriteFile(src, []byte("img"), 0644))

	rec, err := in.AddPath(src)
	require.NoError(t, err)

	assert.Equal(t, "drop.png", rec.FileName)
	assert.Equal(t, src, rec.FilePath)
	assert.FileExists(t, rec.PreviewPath)
	assert.Equal(t, 1, st.Len())
}

func TestDetermineMediaType(t *testing.T) {
	tests := []struct {
		contentType string
		want        models.MediaType
		ok          bool
	}{
		{"image/png", models.MediaTypeImage, true},
		{"image/jpeg", models.MediaTypeImage, true},
		{"video/mp4", models.MediaTypeVideo, true},
		{"audio/wav", models.MediaTypeAudio, true},
		{"application/pdf", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := DetermineMediaType(tt.contentType)
		assert.Equal(t, tt.ok, ok, tt.contentType)
		assert.Equal(t, tt.want, got, tt.contentType)
	}
}
