package session

// SessionFlags bits, as carried by the SessionFlags and CarIdxSessionFlags
// variables. Use them with telemetry.BitField.HasFlag.
const (
	FlagCheckered        uint32 = 0x00000001
	FlagWhite            uint32 = 0x00000002
	FlagGreen            uint32 = 0x00000004
	FlagYellow           uint32 = 0x00000008
	FlagRed              uint32 = 0x00000010
	FlagBlue             uint32 = 0x00000020
	FlagDebris           uint32 = 0x00000040
	FlagCrossed          uint32 = 0x00000080
	FlagYellowWaving     uint32 = 0x00000100
	FlagOneLapToGreen    uint32 = 0x00000200
	FlagGreenHeld        uint32 = 0x00000400
	FlagTenToGo          uint32 = 0x00000800
	FlagFiveToGo         uint32 = 0x00001000
	FlagRandomWaving     uint32 = 0x00002000
	FlagCaution          uint32 = 0x00004000
	FlagCautionWaving    uint32 = 0x00008000
	FlagBlack            uint32 = 0x00010000
	FlagDisqualify       uint32 = 0x00020000
	FlagServicible       uint32 = 0x00040000
	FlagFurled           uint32 = 0x00080000
	FlagRepair           uint32 = 0x00100000
	FlagDQScoringInvalid uint32 = 0x00200000
	FlagStartHidden      uint32 = 0x10000000
	FlagStartReady       uint32 = 0x20000000
	FlagStartSet         uint32 = 0x40000000
	FlagStartGo          uint32 = 0x80000000
)

// EngineWarnings bits.
const (
	EngineWaterTempWarning    uint32 = 0x0001
	EngineFuelPressureWarning uint32 = 0x0002
	EngineOilPressureWarning  uint32 = 0x0004
	EngineStalled             uint32 = 0x0008
	EnginePitSpeedLimiter     uint32 = 0x0010
	EngineRevLimiterActive    uint32 = 0x0020
	EngineOilTempWarning      uint32 = 0x0040
	EngineMandRepNeeded       uint32 = 0x0080
	EngineOptRepNeeded        uint32 = 0x0100
)

// PitSvFlags bits.
const (
	PitSvLFTireChange      uint32 = 0x0001
	PitSvRFTireChange      uint32 = 0x0002
	PitSvLRTireChange      uint32 = 0x0004
	PitSvRRTireChange      uint32 = 0x0008
	PitSvFuelFill          uint32 = 0x0010
	PitSvWindshieldTearoff uint32 = 0x0020
	PitSvFastRepair        uint32 = 0x0040
)

var sessionFlagNames = []struct {
	mask uint32
	name string
}{
	{FlagCheckered, "checkered"}, {FlagWhite, "white"}, {FlagGreen, "green"},
	{FlagYellow, "yellow"}, {FlagRed, "red"}, {FlagBlue, "blue"},
	{FlagDebris, "debris"}, {FlagCrossed, "crossed"}, {FlagYellowWaving, "yellowWaving"},
	{FlagOneLapToGreen, "oneLapToGreen"}, {FlagGreenHeld, "greenHeld"}, {FlagTenToGo, "tenToGo"},
	{FlagFiveToGo, "fiveToGo"}, {FlagRandomWaving, "randomWaving"}, {FlagCaution, "caution"},
	{FlagCautionWaving, "cautionWaving"}, {FlagBlack, "black"}, {FlagDisqualify, "disqualify"},
	{FlagServicible, "servicible"}, {FlagFurled, "furled"}, {FlagRepair, "repair"},
	{FlagDQScoringInvalid, "dqScoringInvalid"}, {FlagStartHidden, "startHidden"},
	{FlagStartReady, "startReady"}, {FlagStartSet, "startSet"}, {FlagStartGo, "startGo"},
}

// SessionFlagNames lists the names of every flag set in v, lowest bit first.
func SessionFlagNames(v uint32) []string {
	var out []string
	for _, f := range sessionFlagNames {
		if v&f.mask != 0 {
			out = append(out, f.name)
		}
	}
	return out
}
