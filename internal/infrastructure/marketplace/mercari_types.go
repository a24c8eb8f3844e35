package marketplace

// MercariResponse is the envelope every internal API reply shares
type MercariResponse struct {
	Result string        `json:"result,omitempty"` // "OK" on success
	Error  *MercariError `json:"error,omitempty"`  // Present on failure
}

// MercariError carries the failure detail inside an envelope
type MercariError struct {
	Code    string `json:"code"`            // Machine-readable error code
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Offending field for validation errors
}

// IsSuccess checks if the reply reports success
func (r *MercariResponse) IsSuccess() bool {
	return r.Error == nil
}

// MercariPhotoResponse is the reply to a photo upload
type MercariPhotoResponse struct {
	MercariResponse
	Data *MercariPhoto `json:"data,omitempty"`
}

// MercariPhoto describes one uploaded photo
type MercariPhoto struct {
	PhotoID string `json:"photoId"` // Server-assigned photo identifier
}

// MercariItemResponse is the reply to item creation
type MercariItemResponse struct {
	MercariResponse
	Data *MercariItem `json:"data,omitempty"`
}

// MercariItem describes a listed item
type MercariItem struct {
	ID     string `json:"id"`               // Item identifier
	Status string `json:"status,omitempty"` // on_sale, sold_out, cancel
	Name   string `json:"name,omitempty"`   // Item title
}

// MercariProfileResponse is the reply to the profile probe
type MercariProfileResponse struct {
	MercariResponse
	Data *MercariProfile `json:"data,omitempty"`
}

// MercariProfile describes the authenticated seller
type MercariProfile struct {
	ID   string `json:"id"`             // Platform user identifier
	Name string `json:"name,omitempty"` // Display name
}

// mercariCreateItemRequest is the body for item creation
type mercariCreateItemRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int64    `json:"price"` // Whole dollars
	ConditionID int      `json:"conditionId"`
	CategoryID  string   `json:"categoryId,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Size        string   `json:"size,omitempty"`
	Color       string   `json:"color,omitempty"`
	PhotoIDs    []string `json:"photoIds"`
	Tags        []string `json:"tags,omitempty"`
}
