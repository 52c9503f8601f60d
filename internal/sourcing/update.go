package sourcing

// RfxUpdate stages a partial change to an existing remote record. Fields that
// are never set are omitted from the payload and left untouched remotely.
type RfxUpdate struct {
	operation string
	rfx       Rfx
	staged    bool
}

// NewRfxUpdate addresses an update at the given remote record
func NewRfxUpdate(rfxID, referenceCode string) *RfxUpdate {
	return &RfxUpdate{
		operation: OperationCreateUpdate,
		rfx: Rfx{
			RfxSetting: &RfxSetting{RfxID: rfxID, RfxReferenceCode: referenceCode},
		},
	}
}

// WithShortDescription stages a new short description
func (u *RfxUpdate) WithShortDescription(description string) *RfxUpdate {
	u.rfx.RfxSetting.ShortDescription = &description
	u.staged = true
	return u
}

// WithSuppliers stages a supplier list. An empty list is still sent.
func (u *RfxUpdate) WithSuppliers(suppliers []Supplier) *RfxUpdate {
	list := make([]Supplier, len(suppliers))
	copy(list, suppliers)
	u.rfx.SuppliersList = &SuppliersList{Supplier: list}
	u.staged = true
	return u
}

// WithAttachment stages attachment metadata for an upload
func (u *RfxUpdate) WithAttachment(audience Audience, fileName, description string) *RfxUpdate {
	list := &AttachmentList{Attachment: []Attachment{{FileName: fileName, FileDescription: description}}}
	if audience == AudienceSupplier {
		u.rfx.SellerAttachmentsList = list
	} else {
		u.rfx.BuyerAttachmentsList = list
	}
	u.staged = true
	return u
}

// Reset switches the update to replace staged lists wholesale
func (u *RfxUpdate) Reset() *RfxUpdate {
	u.operation = OperationUpdateReset
	return u
}

// Staged reports whether anything has been staged
func (u *RfxUpdate) Staged() bool {
	return u.staged
}

// RfxID returns the addressed remote id
func (u *RfxUpdate) RfxID() string {
	return u.rfx.RfxSetting.RfxID
}

// Request renders the createUpdate body
func (u *RfxUpdate) Request() CreateUpdateRfx {
	return CreateUpdateRfx{OperationCode: u.operation, Rfx: u.rfx}
}
