package sourcing

import (
	"strconv"
	"time"
)

// Operation codes understood by the remote createUpdate endpoint
const (
	OperationCreateFromTemplate = "CREATE_FROM_TEMPLATE"
	// OperationCreateUpdate merges the sent fields into the remote record
	OperationCreateUpdate = "CREATEUPDATE"
	// OperationUpdateReset replaces the sent lists wholesale
	OperationUpdateReset = "UPDATE_RESET"
)

// Values used when creating a record from a template
const (
	RfiFlagStandard  = 0
	RfxTypeStandard  = "STANDARD_ITT"
	LabelLocale      = "en_GB"
	InfoFrameworkKey = "Framework Name"
	InfoLotKey       = "Lot Number"
	ReturnMessageOK  = "OK"
)

// Audience says who an attachment is intended for
type Audience string

const (
	AudienceBuyer    Audience = "buyer"
	AudienceSupplier Audience = "supplier"
)

// Valid reports whether a is a known audience
func (a Audience) Valid() bool {
	return a == AudienceBuyer || a == AudienceSupplier
}

// CompanyRef identifies a remote company
type CompanyRef struct {
	ID string `json:"id"`
}

// UserRef identifies a remote user
type UserRef struct {
	ID string `json:"id"`
}

// RfxSetting is the settings block of a remote record. Pointer fields are
// only sent when set.
type RfxSetting struct {
	RfxID                 string      `json:"rfxId,omitempty"`
	RfxReferenceCode      string      `json:"rfxReferenceCode,omitempty"`
	ShortDescription      *string     `json:"shortDescription,omitempty"`
	TemplateReferenceCode string      `json:"templateReferenceCode,omitempty"`
	TenderReferenceCode   string      `json:"tenderReferenceCode,omitempty"`
	RfiFlag               *int        `json:"rfiFlag,omitempty"`
	RfxType               string      `json:"rfxType,omitempty"`
	StatusCode            *int        `json:"statusCode,omitempty"`
	Status                string      `json:"status,omitempty"`
	BuyerCompany          *CompanyRef `json:"buyerCompany,omitempty"`
	OwnerUser             *UserRef    `json:"ownerUser,omitempty"`
	CloseDate             *time.Time  `json:"closeDate,omitempty"`
}

// AdditionalInfoValue is a single value of an additional info entry
type AdditionalInfoValue struct {
	Value string `json:"value"`
}

// AdditionalInfoValues wraps the value list
type AdditionalInfoValues struct {
	Value []AdditionalInfoValue `json:"value"`
}

// AdditionalInfo is a labelled free-form attribute of a record
type AdditionalInfo struct {
	Name        string               `json:"name"`
	Label       string               `json:"label"`
	LabelLocale string               `json:"labelLocale"`
	Values      AdditionalInfoValues `json:"values"`
}

// NewAdditionalInfo builds a single valued entry
func NewAdditionalInfo(name, value string) AdditionalInfo {
	return AdditionalInfo{
		Name:        name,
		Label:       name,
		LabelLocale: LabelLocale,
		Values:      AdditionalInfoValues{Value: []AdditionalInfoValue{{Value: value}}},
	}
}

// AdditionalInfoList wraps the additional info entries
type AdditionalInfoList struct {
	AdditionalInfo []AdditionalInfo `json:"additionalInfo"`
}

// CompanyData identifies a supplier company and carries its display name
type CompanyData struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Supplier is an entry of the remote supplier list
type Supplier struct {
	CompanyData CompanyData `json:"companyData"`
}

// SuppliersList wraps the supplier list. The slice is always sent, even empty.
type SuppliersList struct {
	Supplier []Supplier `json:"supplier"`
}

// Attachment is the metadata of a remote file
type Attachment struct {
	FileID          int64  `json:"fileId,omitempty"`
	FileName        string `json:"fileName"`
	FileDescription string `json:"fileDescription,omitempty"`
	FileSize        int64  `json:"fileSize,omitempty"`
}

// AttachmentList wraps an attachment list
type AttachmentList struct {
	Attachment []Attachment `json:"attachment"`
}

// Rfx is the remote record. Every block is optional so the same type serves
// both full reads and partial writes.
type Rfx struct {
	RfxSetting            *RfxSetting         `json:"rfxSetting,omitempty"`
	RfxAdditionalInfoList *AdditionalInfoList `json:"rfxAdditionalInfoList,omitempty"`
	SuppliersList         *SuppliersList      `json:"suppliersList,omitempty"`
	BuyerAttachmentsList  *AttachmentList     `json:"buyerAttachmentsList,omitempty"`
	SellerAttachmentsList *AttachmentList     `json:"sellerAttachmentsList,omitempty"`
}

// Suppliers returns the supplier list or nil
func (r *Rfx) Suppliers() []Supplier {
	if r == nil || r.SuppliersList == nil {
		return nil
	}
	return r.SuppliersList.Supplier
}

// BuyerAttachments returns the buyer attachment list or nil
func (r *Rfx) BuyerAttachments() []Attachment {
	if r == nil || r.BuyerAttachmentsList == nil {
		return nil
	}
	return r.BuyerAttachmentsList.Attachment
}

// SellerAttachments returns the supplier attachment list or nil
func (r *Rfx) SellerAttachments() []Attachment {
	if r == nil || r.SellerAttachmentsList == nil {
		return nil
	}
	return r.SellerAttachmentsList.Attachment
}

// StatusCode returns the remote status code as a lookup key
func (r *Rfx) StatusCode() (string, bool) {
	if r == nil || r.RfxSetting == nil || r.RfxSetting.StatusCode == nil {
		return "", false
	}
	return strconv.Itoa(*r.RfxSetting.StatusCode), true
}

// CreateUpdateRfx is the request body of the createUpdate endpoint
type CreateUpdateRfx struct {
	OperationCode string `json:"operationCode"`
	Rfx           Rfx    `json:"rfx"`
}

// CreateUpdateRfxResponse is returned by every createUpdate call
type CreateUpdateRfxResponse struct {
	ReturnCode       int    `json:"returnCode"`
	ReturnMessage    string `json:"returnMessage"`
	RfxID            string `json:"rfxId"`
	RfxReferenceCode string `json:"rfxReferenceCode"`
}

// PublishRfx is the request body of the publish endpoint
type PublishRfx struct {
	RfxID            string    `json:"rfxId"`
	RfxReferenceCode string    `json:"rfxReferenceCode,omitempty"`
	OperatorUser     UserRef   `json:"operatorUser"`
	NewClosingDate   time.Time `json:"newClosingDate"`
}

// BuyerUser is a resolved remote buyer identity
type BuyerUser struct {
	UserID    string `json:"userId"`
	CompanyID string `json:"companyId"`
	Email     string `json:"email"`
}

// AttachmentPayload is a downloaded attachment
type AttachmentPayload struct {
	FileName    string
	ContentType string
	Data        []byte
}
