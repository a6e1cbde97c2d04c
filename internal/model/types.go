package model

// CapabilityType is the closed set of action kinds a module may offer.
// Dispatch over capability types is a switch over this enumeration,
// never reflection.
type CapabilityType string

const (
	CapFSRead    CapabilityType = "fs.read"
	CapFSWrite   CapabilityType = "fs.write"
	CapNetFetch  CapabilityType = "net.fetch"
	CapExecRun   CapabilityType = "exec.run"
	CapInference CapabilityType = "inference.invoke"
	CapSecret    CapabilityType = "secret.read"
)

// KnownCapabilityTypes lists every valid capability type.
var KnownCapabilityTypes = []CapabilityType{
	CapFSRead,
	CapFSWrite,
	CapNetFetch,
	CapExecRun,
	CapInference,
	CapSecret,
}

// IsKnownCapabilityType reports whether t is in the closed enumeration.
func IsKnownCapabilityType(t CapabilityType) bool {
	for _, k := range KnownCapabilityTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Tier is the ordered risk classification T0 < T1 < T2 < T3.
// Higher tier = more restricted.
type Tier int

const (
	Tier0 Tier = 0 // routine, log only
	Tier1 Tier = 1 // elevated, logged with detail
	Tier2 Tier = 2 // guarded, restriction rules bite here
	Tier3 Tier = 3 // critical, typed-ack territory
)

// ParseTier converts the wire form ("T0".."T3") to a Tier.
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "T0":
		return Tier0, true
	case "T1":
		return Tier1, true
	case "T2":
		return Tier2, true
	case "T3":
		return Tier3, true
	default:
		return 0, false
	}
}

// String returns the wire form of the tier.
func (t Tier) String() string {
	switch t {
	case Tier0:
		return "T0"
	case Tier1:
		return "T1"
	case Tier2:
		return "T2"
	case Tier3:
		return "T3"
	default:
		return "T?"
	}
}

// Valid reports whether the tier is within the closed range.
func (t Tier) Valid() bool {
	return t >= Tier0 && t <= Tier3
}

// Outcome is the authorization result for one invocation.
type Outcome string

const (
	Permit   Outcome = "permit"
	Deny     Outcome = "deny"
	Escalate Outcome = "escalate"
)

// Verdict is the effect a restriction rule carries when it matches.
type Verdict string

const (
	VerdictDeny     Verdict = "deny"
	VerdictEscalate Verdict = "escalate"
)

// ParseVerdict validates a rule verdict from source text.
func ParseVerdict(s string) (Verdict, bool) {
	switch Verdict(s) {
	case VerdictDeny, VerdictEscalate:
		return Verdict(s), true
	default:
		return "", false
	}
}
