package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelAccessors(t *testing.T) {
	l := NewLabel("Car", 0.92)
	assert.Equal(t, "Car", l.Description())
	assert.InDelta(t, 0.92, l.Score(), 1e-9)
}

func TestDescriptionsKeepsOrder(t *testing.T) {
	labels := []Label{NewLabel("b", 0.1), NewLabel("a", 0.9), NewLabel("b", 0.5)}
	assert.Equal(t, []string{"b", "a", "b"}, Descriptions(labels))
	assert.Empty(t, Descriptions(nil))
}

func TestAttachmentClassification(t *testing.T) {
	assert.True(t, (&Attachment{MimeType: "image/JPEG"}).HasDeclaredImageType())
	assert.False(t, (&Attachment{MimeType: "application/pdf"}).HasDeclaredImageType())
	assert.False(t, (&Attachment{}).HasDeclaredImageType())

	assert.True(t, (&Attachment{AltText: "A dog", AltTextSource: AltTextSourceManual}).HasManualAltText())
	assert.False(t, (&Attachment{AltText: "  ", AltTextSource: AltTextSourceManual}).HasManualAltText())
	assert.False(t, (&Attachment{AltText: "Car", AltTextSource: AltTextSourceGenerated}).HasManualAltText())
}
