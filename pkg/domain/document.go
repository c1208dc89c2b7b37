package domain

import dErrors "kycgate/pkg/domain-errors"

// DocumentType classifies the identity document being processed.
type DocumentType string

const (
	DocTypePAN            DocumentType = "PAN"
	DocTypeAadhaar        DocumentType = "Aadhaar"
	DocTypePassport       DocumentType = "Passport"
	DocTypeDrivingLicense DocumentType = "Driving License"
	DocTypeVoterID        DocumentType = "Voter ID"
	DocTypeOther          DocumentType = "Other"
)

var validDocumentTypes = map[DocumentType]bool{
	DocTypePAN:            true,
	DocTypeAadhaar:        true,
	DocTypePassport:       true,
	DocTypeDrivingLicense: true,
	DocTypeVoterID:        true,
	DocTypeOther:          true,
}

// ParseDocumentType constructs a DocumentType from external input.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid document type: "+s)
	}
	return t, nil
}

// IsValid checks if the document type is one of the supported enum values.
func (t DocumentType) IsValid() bool {
	return validDocumentTypes[t]
}

// String returns the string representation of the document type.
func (t DocumentType) String() string {
	return string(t)
}

// DocumentStatus tracks a document through the processing pipeline. Document
// storage is external; the core only updates this status via its collaborator.
type DocumentStatus string

const (
	DocStatusUploaded    DocumentStatus = "uploaded"
	DocStatusProcessing  DocumentStatus = "processing"
	DocStatusClassified  DocumentStatus = "classified"
	DocStatusApproved    DocumentStatus = "approved"
	DocStatusRejected    DocumentStatus = "rejected"
	DocStatusNeedsReview DocumentStatus = "needs_review"
)

// StatusForVerdict maps a final verdict onto the document status it implies.
// ESCALATE keeps the document in review rather than closing it.
func StatusForVerdict(v Verdict) DocumentStatus {
	switch v {
	case VerdictApproved:
		return DocStatusApproved
	case VerdictRejected:
		return DocStatusRejected
	default:
		return DocStatusNeedsReview
	}
}
