package model

import "time"

// MediaAsset is a reference to a source image owned by the media library.
type MediaAsset struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	IsBusinessCard bool      `json:"is_business_card"`
	VendorID       string    `json:"vendor_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Processed reports whether the asset has already been linked to a vendor.
func (m *MediaAsset) Processed() bool {
	return m.VendorID != ""
}
