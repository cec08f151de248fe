package models

// EnvelopeStatus is the lifecycle state of an envelope
type EnvelopeStatus string

const (
	StatusDraft     EnvelopeStatus = "DRAFT"
	StatusPending   EnvelopeStatus = "PENDING"
	StatusCompleted EnvelopeStatus = "COMPLETED"
	StatusRejected  EnvelopeStatus = "REJECTED"

	// StatusArchived is accepted by list filters but is never written to storage.
	StatusArchived EnvelopeStatus = "ARCHIVED"
)

// Valid reports whether the status can be stored on an envelope
func (s EnvelopeStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusCompleted, StatusRejected:
		return true
	case StatusArchived:
		return false
	default:
		return false
	}
}

// Mutable reports whether recipients, fields and metadata may still change
func (s EnvelopeStatus) Mutable() bool {
	switch s {
	case StatusDraft:
		return true
	case StatusPending, StatusCompleted, StatusRejected, StatusArchived:
		return false
	default:
		return false
	}
}

// Role is the part a recipient plays in the signing flow
type Role string

const (
	RoleSigner   Role = "SIGNER"
	RoleViewer   Role = "VIEWER"
	RoleApprover Role = "APPROVER"
	RoleCC       Role = "CC"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleSigner, RoleViewer, RoleApprover, RoleCC:
		return true
	default:
		return false
	}
}

// RequiresAction reports whether the recipient has to act before the envelope completes
func (r Role) RequiresAction() bool {
	switch r {
	case RoleSigner, RoleApprover:
		return true
	case RoleViewer, RoleCC:
		return false
	default:
		return false
	}
}

// FieldType is the kind of placeholder placed on a document page
type FieldType string

const (
	FieldSignature FieldType = "SIGNATURE"
	FieldInitials  FieldType = "INITIALS"
	FieldName      FieldType = "NAME"
	FieldEmail     FieldType = "EMAIL"
	FieldDate      FieldType = "DATE"
	FieldText      FieldType = "TEXT"
	FieldNumber    FieldType = "NUMBER"
	FieldCheckbox  FieldType = "CHECKBOX"
	FieldDropdown  FieldType = "DROPDOWN"
	FieldRadio     FieldType = "RADIO"
)

// Valid reports whether t is a known field type
func (t FieldType) Valid() bool {
	switch t {
	case FieldSignature, FieldInitials, FieldName, FieldEmail, FieldDate,
		FieldText, FieldNumber, FieldCheckbox, FieldDropdown, FieldRadio:
		return true
	default:
		return false
	}
}

// Visibility controls who inside the team can see an envelope
type Visibility string

const (
	VisibilityEveryone        Visibility = "EVERYONE"
	VisibilityTeam            Visibility = "TEAM"
	VisibilityManagerAndAbove Visibility = "MANAGER_AND_ABOVE"
)

// Valid reports whether v is a known visibility
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityEveryone, VisibilityTeam, VisibilityManagerAndAbove:
		return true
	default:
		return false
	}
}

// SigningOrder decides whether recipients sign one after another or all at once
type SigningOrder string

const (
	SigningOrderParallel   SigningOrder = "PARALLEL"
	SigningOrderSequential SigningOrder = "SEQUENTIAL"
)

// Valid reports whether o is a known signing order
func (o SigningOrder) Valid() bool {
	switch o {
	case SigningOrderParallel, SigningOrderSequential:
		return true
	default:
		return false
	}
}

// Position returns the signing position for the recipient at zero-based index i.
// Parallel envelopes carry no positions.
func (o SigningOrder) Position(i int) *int {
	switch o {
	case SigningOrderSequential:
		p := i + 1
		return &p
	case SigningOrderParallel:
		return nil
	default:
		return nil
	}
}

// DistributionMethod decides how recipients receive their signing links
type DistributionMethod string

const (
	DistributionEmail DistributionMethod = "EMAIL"
	DistributionNone  DistributionMethod = "NONE"
)

// Valid reports whether d is a known distribution method
func (d DistributionMethod) Valid() bool {
	switch d {
	case DistributionEmail, DistributionNone:
		return true
	default:
		return false
	}
}

// Notifies reports whether sending the envelope should reach recipients directly
func (d DistributionMethod) Notifies() bool {
	switch d {
	case DistributionEmail:
		return true
	case DistributionNone:
		return false
	default:
		return false
	}
}

// DocumentDataType is the encoding of stored document content
type DocumentDataType string

const (
	DocumentDataBytes64 DocumentDataType = "BYTES_64"
)
