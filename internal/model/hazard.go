package model

// HazardTag marks a capability or proposal as carrying a specific
// class of irreversible or high-blast-radius risk. Any hazard on a
// governance change forces typed acknowledgment regardless of the
// capability's own ack flag.
type HazardTag string

const (
	HazardDestructive      HazardTag = "destructive"
	HazardExfiltration     HazardTag = "exfiltration"
	HazardCredentialAccess HazardTag = "credential_access"
	HazardSpend            HazardTag = "spend"
	HazardSelfModification HazardTag = "self_modification"
	HazardAutonomy         HazardTag = "autonomy"
)

// KnownHazardTags lists every hazard tag a manifest may declare.
var KnownHazardTags = []HazardTag{
	HazardDestructive,
	HazardExfiltration,
	HazardCredentialAccess,
	HazardSpend,
	HazardSelfModification,
	HazardAutonomy,
}

// IsKnownHazardTag reports whether h is a recognized hazard tag.
func IsKnownHazardTag(h HazardTag) bool {
	for _, k := range KnownHazardTags {
		if h == k {
			return true
		}
	}
	return false
}
