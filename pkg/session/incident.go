package session

import "github.com/bft-labs/pitwall/pkg/telemetry"

// IncidentReport is the low byte of an incident bitfield.
type IncidentReport uint8

const (
	ReportNone IncidentReport = iota
	ReportOutOfControl
	ReportOffTrack
	ReportOffTrackOngoing
	ReportContactWithWorld
	ReportCollisionWithWorld
	ReportCollisionWithWorldOngoing
	ReportContactWithCar
	ReportCollisionWithCar
)

// IncidentPenalty is the second byte of an incident bitfield.
type IncidentPenalty uint8

const (
	PenaltyNone IncidentPenalty = iota
	Penalty0x
	Penalty1x
	Penalty2x
	Penalty4x
)

const (
	incidentRepMask uint32 = 0x000000ff
	incidentPenMask uint32 = 0x0000ff00
)

// Incident is a decoded PlayerIncidents or CarIdxIncidents value. Codes
// outside the known range are kept as-is.
type Incident struct {
	Report  IncidentReport
	Penalty IncidentPenalty
}

// DecodeIncident splits an incident bitfield into report and penalty.
func DecodeIncident(b telemetry.BitField) Incident {
	raw := uint32(b)
	return Incident{
		Report:  IncidentReport(raw & incidentRepMask),
		Penalty: IncidentPenalty((raw & incidentPenMask) >> 8),
	}
}

func (p IncidentPenalty) String() string {
	switch p {
	case PenaltyNone:
		return "none"
	case Penalty0x:
		return "0x"
	case Penalty1x:
		return "1x"
	case Penalty2x:
		return "2x"
	case Penalty4x:
		return "4x"
	default:
		return "unknown"
	}
}
