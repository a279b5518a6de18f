package handler

import (
	appvendor "github.com/artisanmarket/backend/internal/application/vendor"
	"github.com/artisanmarket/backend/internal/domain/vendor"
)

// ContactRequest is the store's public contact block
type ContactRequest struct {
	Email   string `json:"email" binding:"required,email,max=254"`
	Phone   string `json:"phone" binding:"omitempty,max=30"`
	Website string `json:"website" binding:"omitempty,url,max=300"`
	Address string `json:"address" binding:"omitempty,max=300"`
}

// VendorProfileRequest creates or updates the caller's store
type VendorProfileRequest struct {
	StoreName   string         `json:"storeName" binding:"required,min=2,max=100"`
	Description string         `json:"description" binding:"omitempty,max=2000"`
	Logo        string         `json:"logo" binding:"omitempty,url,max=1000"`
	Banner      string         `json:"banner" binding:"omitempty,url,max=1000"`
	Contact     ContactRequest `json:"contact" binding:"required"`
}

func (r VendorProfileRequest) toRequest() appvendor.ProfileRequest {
	return appvendor.ProfileRequest{
		StoreName:   r.StoreName,
		Description: r.Description,
		Logo:        r.Logo,
		Banner:      r.Banner,
		Contact: vendor.Contact{
			Email:   r.Contact.Email,
			Phone:   r.Contact.Phone,
			Website: r.Contact.Website,
			Address: r.Contact.Address,
		},
	}
}
