package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationFromExtraction(t *testing.T) {
	tests := []struct {
		in   ExtractionStatus
		want ValidationStatus
	}{
		{ExtractionValidated, ValidationValidated},
		{ExtractionAmbiguous, ValidationAmbiguous},
		{ExtractionFailed, ValidationAmbiguous},
		{ExtractionStatus(""), ValidationAmbiguous},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, ValidationFromExtraction(tt.in))
		})
	}
}

func TestExtractionStatus_Valid(t *testing.T) {
	assert.True(t, ExtractionValidated.Valid())
	assert.True(t, ExtractionAmbiguous.Valid())
	assert.True(t, ExtractionFailed.Valid())
	assert.False(t, ExtractionStatus("validated").Valid())
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Jane Doe", FullName("Jane", "Doe"))
	assert.Equal(t, "Jane", FullName("Jane", ""))
	assert.Equal(t, "Jane Doe", FullName(" Jane ", " Doe "))
}

func TestMediaAsset_Processed(t *testing.T) {
	m := &MediaAsset{ID: "m1"}
	assert.False(t, m.Processed())
	m.VendorID = "v1"
	assert.True(t, m.Processed())
}
