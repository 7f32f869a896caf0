package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModality(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Modality
		wantErr bool
	}{
		{name: "text", input: "text", want: ModalityText},
		{name: "image upper case", input: " IMAGE ", want: ModalityImage},
		{name: "unknown", input: "audio", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModality(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTextFragment(t *testing.T) {
	f := NewTextFragment("tenant_a", "catalog.pdf", 3, "Chair model X", []float64{1, 0})

	assert.NotEqual(t, uuid.Nil, f.ID)
	assert.Equal(t, "tenant_a", f.TenantID)
	assert.Equal(t, ModalityText, f.Modality)
	assert.Equal(t, 3, f.PageNumber)
	assert.True(t, f.HasEmbedding())
	assert.False(t, f.CreatedAt.IsZero())
	assert.NoError(t, f.Validate())
}

func TestNewImageFragment(t *testing.T) {
	t.Run("default description", func(t *testing.T) {
		f := NewImageFragment("tenant_a", "catalog.pdf", 7, "extracted_images/tenant_a/x.png", "", nil)

		assert.Equal(t, ModalityImage, f.Modality)
		assert.Equal(t, "Image from catalog.pdf page 7", f.Content)
		assert.False(t, f.HasEmbedding())
	})

	t.Run("explicit description", func(t *testing.T) {
		f := NewImageFragment("tenant_a", "catalog.pdf", 7, "x.png", "Oak drawer", []float64{0.1})
		assert.Equal(t, "Oak drawer", f.Content)
	})
}

func TestFragment_Validate(t *testing.T) {
	base := Fragment{TenantID: "t", Modality: ModalityText, SourceDocument: "doc.pdf", PageNumber: 1}

	tests := []struct {
		name    string
		mutate  func(f *Fragment)
		wantErr string
	}{
		{name: "valid", mutate: func(f *Fragment) {}},
		{name: "missing tenant", mutate: func(f *Fragment) { f.TenantID = "" }, wantErr: "tenant_id"},
		{name: "bad modality", mutate: func(f *Fragment) { f.Modality = "audio" }, wantErr: "modality"},
		{name: "missing source", mutate: func(f *Fragment) { f.SourceDocument = "" }, wantErr: "source_document"},
		{name: "negative page", mutate: func(f *Fragment) { f.PageNumber = -1 }, wantErr: "page_number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base
			tt.mutate(&f)
			err := f.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFragments(t *testing.T) {
	ranked := []ScoredFragment{
		{Fragment: Fragment{Content: "a"}, Score: 0.9},
		{Fragment: Fragment{Content: "b"}, Score: 0.4},
	}

	out := Fragments(ranked)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Content)
	assert.Equal(t, "b", out[1].Content)
}
