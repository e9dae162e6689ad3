package rotation

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/pkix"
)

func ValidateRequest(req Request) error {
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.SiteID, validation.Required),
		validation.Field(&req.Target, validation.Required),
		validation.Field(&req.KeySize, validation.Min(pkix.MinRSAKeySize)),
	); err != nil {
		return fmt.Errorf("%s%w", err.Error(), model.ErrInvalidParameter)
	}

	return nil
}
