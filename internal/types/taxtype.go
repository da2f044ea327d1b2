package types

import (
	"slices"

	ierr "github.com/levyline/levyline/internal/errors"
)

// TaxType identifies which rate schedule and calculation path applies
// to an assessment. The first four are assessable tax heads; the rest
// exist only as rate rows resolved by the registry (MAT rate, minimum
// floor and interest are never assessed directly).
type TaxType string

const (
	TaxTypeIncome      TaxType = "income"
	TaxTypeCorporate   TaxType = "corporate"
	TaxTypeGST         TaxType = "gst"
	TaxTypeWithholding TaxType = "withholding"

	// Rate-row-only tax types
	TaxTypeMAT                 TaxType = "mat"
	TaxTypeMinimumFloor        TaxType = "minimum_floor"
	TaxTypeLatePaymentInterest TaxType = "late_payment_interest"
)

func (t TaxType) String() string {
	return string(t)
}

// IsAssessable reports whether the tax type can be the subject of an
// assessment request, as opposed to a registry-only rate row.
func (t TaxType) IsAssessable() bool {
	switch t {
	case TaxTypeIncome, TaxTypeCorporate, TaxTypeGST, TaxTypeWithholding:
		return true
	default:
		return false
	}
}

func (t TaxType) Validate() error {
	allowedValues := []string{
		TaxTypeIncome.String(),
		TaxTypeCorporate.String(),
		TaxTypeGST.String(),
		TaxTypeWithholding.String(),
		TaxTypeMAT.String(),
		TaxTypeMinimumFloor.String(),
		TaxTypeLatePaymentInterest.String(),
	}
	if !slices.Contains(allowedValues, string(t)) {
		return ierr.NewError("invalid tax type").
			WithHintf("Tax type must be one of %v", allowedValues).
			WithReportableDetails(map[string]any{
				"tax_type": string(t),
			}).
			Mark(ierr.ErrUnknownTaxType)
	}

	return nil
}

// TaxpayerCategory is the size/classification bucket used to select
// category-specific rate and penalty rows. The empty value means the
// general (category-less) row.
type TaxpayerCategory string

const (
	TaxpayerCategoryGeneral TaxpayerCategory = ""
	TaxpayerCategoryLarge   TaxpayerCategory = "large"
	TaxpayerCategoryMedium  TaxpayerCategory = "medium"
	TaxpayerCategorySmall   TaxpayerCategory = "small"
	TaxpayerCategoryMicro   TaxpayerCategory = "micro"
)

func (c TaxpayerCategory) String() string {
	return string(c)
}

// IsGeneral reports whether the category is the general bucket
func (c TaxpayerCategory) IsGeneral() bool {
	return c == TaxpayerCategoryGeneral
}

func (c TaxpayerCategory) Validate() error {
	allowedValues := []string{
		TaxpayerCategoryGeneral.String(),
		TaxpayerCategoryLarge.String(),
		TaxpayerCategoryMedium.String(),
		TaxpayerCategorySmall.String(),
		TaxpayerCategoryMicro.String(),
	}
	if !slices.Contains(allowedValues, string(c)) {
		return ierr.NewError("invalid taxpayer category").
			WithHint("Taxpayer category must be one of large, medium, small, micro or empty for general").
			WithReportableDetails(map[string]any{
				"taxpayer_category": string(c),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaymentCategory selects the withholding rate row for a payment.
// Each category carries an independent rate in the registry.
type PaymentCategory string

const (
	PaymentCategoryDividends        PaymentCategory = "dividends"
	PaymentCategoryProfessionalFees PaymentCategory = "professional_fees"
	PaymentCategoryRent             PaymentCategory = "rent"
	PaymentCategoryCommission       PaymentCategory = "commission"
	PaymentCategoryManagementFees   PaymentCategory = "management_fees"
)

func (p PaymentCategory) String() string {
	return string(p)
}

func (p PaymentCategory) Validate() error {
	allowedValues := []string{
		PaymentCategoryDividends.String(),
		PaymentCategoryProfessionalFees.String(),
		PaymentCategoryRent.String(),
		PaymentCategoryCommission.String(),
		PaymentCategoryManagementFees.String(),
	}
	if !slices.Contains(allowedValues, string(p)) {
		return ierr.NewError("invalid payment category").
			WithHintf("Payment category must be one of %v", allowedValues).
			WithReportableDetails(map[string]any{
				"payment_category": string(p),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
