package session

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the typed session-info document. Keys the simulator adds in
// newer builds land in each section's Extra map instead of failing the parse.
type Document struct {
	WeekendInfo        WeekendInfo        `yaml:"WeekendInfo"`
	SessionInfo        SessionInfo        `yaml:"SessionInfo"`
	QualifyResultsInfo QualifyResultsInfo `yaml:"QualifyResultsInfo"`
	CameraInfo         CameraInfo         `yaml:"CameraInfo"`
	RadioInfo          RadioInfo          `yaml:"RadioInfo"`
	DriverInfo         DriverInfo         `yaml:"DriverInfo"`
	SplitTimeInfo      SplitTimeInfo      `yaml:"SplitTimeInfo"`
	CarSetup           map[string]any     `yaml:"CarSetup"`
}

type WeekendInfo struct {
	TrackName             string           `yaml:"TrackName"`
	TrackID               int              `yaml:"TrackID"`
	TrackLength           string           `yaml:"TrackLength"`
	TrackLengthOfficial   string           `yaml:"TrackLengthOfficial"`
	TrackDisplayName      string           `yaml:"TrackDisplayName"`
	TrackDisplayShortName string           `yaml:"TrackDisplayShortName"`
	TrackConfigName       string           `yaml:"TrackConfigName"`
	TrackCity             string           `yaml:"TrackCity"`
	TrackCountry          string           `yaml:"TrackCountry"`
	TrackNumTurns         int              `yaml:"TrackNumTurns"`
	TrackPitSpeedLimit    string           `yaml:"TrackPitSpeedLimit"`
	TrackType             string           `yaml:"TrackType"`
	TrackSkies            string           `yaml:"TrackSkies"`
	TrackSurfaceTemp      string           `yaml:"TrackSurfaceTemp"`
	TrackAirTemp          string           `yaml:"TrackAirTemp"`
	SeriesID              int              `yaml:"SeriesID"`
	SeasonID              int              `yaml:"SeasonID"`
	SessionID             int              `yaml:"SessionID"`
	SubSessionID          int              `yaml:"SubSessionID"`
	LeagueID              int              `yaml:"LeagueID"`
	Official              int              `yaml:"Official"`
	RaceWeek              int              `yaml:"RaceWeek"`
	EventType             string           `yaml:"EventType"`
	Category              string           `yaml:"Category"`
	SimMode               string           `yaml:"SimMode"`
	TeamRacing            int              `yaml:"TeamRacing"`
	NumCarClasses         int              `yaml:"NumCarClasses"`
	NumCarTypes           int              `yaml:"NumCarTypes"`
	BuildVersion          string           `yaml:"BuildVersion"`
	WeekendOptions        WeekendOptions   `yaml:"WeekendOptions"`
	TelemetryOptions      TelemetryOptions `yaml:"TelemetryOptions"`
	Extra                 map[string]any   `yaml:",inline"`
}

type WeekendOptions struct {
	NumStarters    int            `yaml:"NumStarters"`
	StartingGrid   string         `yaml:"StartingGrid"`
	QualifyScoring string         `yaml:"QualifyScoring"`
	CourseCautions string         `yaml:"CourseCautions"`
	StandingStart  int            `yaml:"StandingStart"`
	Restarts       string         `yaml:"Restarts"`
	WeatherType    string         `yaml:"WeatherType"`
	TimeOfDay      string         `yaml:"TimeOfDay"`
	Date           string         `yaml:"Date"`
	IncidentLimit  string         `yaml:"IncidentLimit"`
	FastRepairs    string         `yaml:"FastRepairsLimit"`
	Extra          map[string]any `yaml:",inline"`
}

type TelemetryOptions struct {
	TelemetryDiskFile string         `yaml:"TelemetryDiskFile"`
	Extra             map[string]any `yaml:",inline"`
}

type SessionInfo struct {
	CurrentSessionNum int            `yaml:"CurrentSessionNum"`
	Sessions          []Session      `yaml:"Sessions"`
	Extra             map[string]any `yaml:",inline"`
}

type Session struct {
	SessionNum             int                `yaml:"SessionNum"`
	SessionLaps            string             `yaml:"SessionLaps"`
	SessionTime            string             `yaml:"SessionTime"`
	SessionNumLapsToAvg    int                `yaml:"SessionNumLapsToAvg"`
	SessionType            string             `yaml:"SessionType"`
	SessionName            string             `yaml:"SessionName"`
	SessionTrackRubber     string             `yaml:"SessionTrackRubberState"`
	SessionSkipped         int                `yaml:"SessionSkipped"`
	ResultsPositions       []ResultPosition   `yaml:"ResultsPositions"`
	ResultsFastestLap      []ResultFastestLap `yaml:"ResultsFastestLap"`
	ResultsAverageLapTime  float64            `yaml:"ResultsAverageLapTime"`
	ResultsNumCautionFlags int                `yaml:"ResultsNumCautionFlags"`
	ResultsNumCautionLaps  int                `yaml:"ResultsNumCautionLaps"`
	ResultsNumLeadChanges  int                `yaml:"ResultsNumLeadChanges"`
	ResultsLapsComplete    int                `yaml:"ResultsLapsComplete"`
	ResultsOfficial        int                `yaml:"ResultsOfficial"`
	Extra                  map[string]any     `yaml:",inline"`
}

type ResultPosition struct {
	Position      int            `yaml:"Position"`
	ClassPosition int            `yaml:"ClassPosition"`
	CarIdx        int            `yaml:"CarIdx"`
	Lap           int            `yaml:"Lap"`
	Time          float64        `yaml:"Time"`
	FastestLap    int            `yaml:"FastestLap"`
	FastestTime   float64        `yaml:"FastestTime"`
	LastTime      float64        `yaml:"LastTime"`
	LapsLed       int            `yaml:"LapsLed"`
	LapsComplete  int            `yaml:"LapsComplete"`
	Incidents     int            `yaml:"Incidents"`
	ReasonOutID   int            `yaml:"ReasonOutId"`
	ReasonOutStr  string         `yaml:"ReasonOutStr"`
	Extra         map[string]any `yaml:",inline"`
}

type ResultFastestLap struct {
	CarIdx      int     `yaml:"CarIdx"`
	FastestLap  int     `yaml:"FastestLap"`
	FastestTime float64 `yaml:"FastestTime"`
}

type QualifyResultsInfo struct {
	Results []QualifyResult `yaml:"Results"`
}

type QualifyResult struct {
	Position      int     `yaml:"Position"`
	ClassPosition int     `yaml:"ClassPosition"`
	CarIdx        int     `yaml:"CarIdx"`
	FastestLap    int     `yaml:"FastestLap"`
	FastestTime   float64 `yaml:"FastestTime"`
}

type CameraInfo struct {
	Groups []CameraGroup `yaml:"Groups"`
}

type CameraGroup struct {
	GroupNum  int      `yaml:"GroupNum"`
	GroupName string   `yaml:"GroupName"`
	IsScenic  bool     `yaml:"IsScenic"`
	Cameras   []Camera `yaml:"Cameras"`
}

type Camera struct {
	CameraNum  int    `yaml:"CameraNum"`
	CameraName string `yaml:"CameraName"`
}

type RadioInfo struct {
	SelectedRadioNum int     `yaml:"SelectedRadioNum"`
	Radios           []Radio `yaml:"Radios"`
}

type Radio struct {
	RadioNum            int         `yaml:"RadioNum"`
	HopCount            int         `yaml:"HopCount"`
	NumFrequencies      int         `yaml:"NumFrequencies"`
	TunedToFrequencyNum int         `yaml:"TunedToFrequencyNum"`
	ScanningIsOn        int         `yaml:"ScanningIsOn"`
	Frequencies         []Frequency `yaml:"Frequencies"`
}

type Frequency struct {
	FrequencyNum  int    `yaml:"FrequencyNum"`
	FrequencyName string `yaml:"FrequencyName"`
	Priority      int    `yaml:"Priority"`
	CarIdx        int    `yaml:"CarIdx"`
	EntryIdx      int    `yaml:"EntryIdx"`
	ClubID        int    `yaml:"ClubID"`
	CanScan       int    `yaml:"CanScan"`
	CanSquawk     int    `yaml:"CanSquawk"`
	Muted         int    `yaml:"Muted"`
	IsMutable     int    `yaml:"IsMutable"`
	IsDeletable   int    `yaml:"IsDeletable"`
}

type DriverInfo struct {
	DriverCarIdx            int            `yaml:"DriverCarIdx"`
	DriverUserID            int            `yaml:"DriverUserID"`
	PaceCarIdx              int            `yaml:"PaceCarIdx"`
	DriverHeadPosX          float64        `yaml:"DriverHeadPosX"`
	DriverHeadPosY          float64        `yaml:"DriverHeadPosY"`
	DriverHeadPosZ          float64        `yaml:"DriverHeadPosZ"`
	DriverCarIsElectric     int            `yaml:"DriverCarIsElectric"`
	DriverCarIdleRPM        float64        `yaml:"DriverCarIdleRPM"`
	DriverCarRedLine        float64        `yaml:"DriverCarRedLine"`
	DriverCarEngCylinderCnt int            `yaml:"DriverCarEngCylinderCount"`
	DriverCarFuelKgPerLtr   float64        `yaml:"DriverCarFuelKgPerLtr"`
	DriverCarFuelMaxLtr     float64        `yaml:"DriverCarFuelMaxLtr"`
	DriverCarMaxFuelPct     float64        `yaml:"DriverCarMaxFuelPct"`
	DriverCarGearNumForward int            `yaml:"DriverCarGearNumForward"`
	DriverCarGearNeutral    int            `yaml:"DriverCarGearNeutral"`
	DriverCarGearReverse    int            `yaml:"DriverCarGearReverse"`
	DriverCarSLFirstRPM     float64        `yaml:"DriverCarSLFirstRPM"`
	DriverCarSLShiftRPM     float64        `yaml:"DriverCarSLShiftRPM"`
	DriverCarSLLastRPM      float64        `yaml:"DriverCarSLLastRPM"`
	DriverCarSLBlinkRPM     float64        `yaml:"DriverCarSLBlinkRPM"`
	DriverCarVersion        string         `yaml:"DriverCarVersion"`
	DriverPitTrkPct         float64        `yaml:"DriverPitTrkPct"`
	DriverCarEstLapTime     float64        `yaml:"DriverCarEstLapTime"`
	DriverSetupName         string         `yaml:"DriverSetupName"`
	DriverSetupIsModified   int            `yaml:"DriverSetupIsModified"`
	DriverSetupLoadTypeName string         `yaml:"DriverSetupLoadTypeName"`
	DriverSetupPassedTech   int            `yaml:"DriverSetupPassedTech"`
	DriverIncidentCount     int            `yaml:"DriverIncidentCount"`
	DriverTires             []DriverTire   `yaml:"DriverTires"`
	Drivers                 []Driver       `yaml:"Drivers"`
	Extra                   map[string]any `yaml:",inline"`
}

type DriverTire struct {
	TireIndex        int    `yaml:"TireIndex"`
	TireCompoundType string `yaml:"TireCompoundType"`
}

type Driver struct {
	CarIdx                 int            `yaml:"CarIdx"`
	UserName               string         `yaml:"UserName"`
	AbbrevName             string         `yaml:"AbbrevName"`
	Initials               string         `yaml:"Initials"`
	UserID                 int            `yaml:"UserID"`
	TeamID                 int            `yaml:"TeamID"`
	TeamName               string         `yaml:"TeamName"`
	CarNumber              string         `yaml:"CarNumber"`
	CarNumberRaw           int            `yaml:"CarNumberRaw"`
	CarPath                string         `yaml:"CarPath"`
	CarClassID             int            `yaml:"CarClassID"`
	CarID                  int            `yaml:"CarID"`
	CarIsPaceCar           int            `yaml:"CarIsPaceCar"`
	CarIsAI                int            `yaml:"CarIsAI"`
	CarIsElectric          int            `yaml:"CarIsElectric"`
	CarScreenName          string         `yaml:"CarScreenName"`
	CarScreenNameShort     string         `yaml:"CarScreenNameShort"`
	CarClassShortName      string         `yaml:"CarClassShortName"`
	CarClassRelSpeed       int            `yaml:"CarClassRelSpeed"`
	CarClassLicenseLevel   int            `yaml:"CarClassLicenseLevel"`
	CarClassMaxFuelPct     string         `yaml:"CarClassMaxFuelPct"`
	CarClassWeightPenalty  string         `yaml:"CarClassWeightPenalty"`
	CarClassPowerAdjust    string         `yaml:"CarClassPowerAdjust"`
	CarClassColor          string         `yaml:"CarClassColor"`
	CarClassEstLapTime     float64        `yaml:"CarClassEstLapTime"`
	IRating                int            `yaml:"IRating"`
	LicLevel               int            `yaml:"LicLevel"`
	LicSubLevel            int            `yaml:"LicSubLevel"`
	LicString              string         `yaml:"LicString"`
	LicColor               string         `yaml:"LicColor"`
	IsSpectator            int            `yaml:"IsSpectator"`
	ClubName               string         `yaml:"ClubName"`
	DivisionName           string         `yaml:"DivisionName"`
	CurDriverIncidentCount int            `yaml:"CurDriverIncidentCount"`
	TeamIncidentCount      int            `yaml:"TeamIncidentCount"`
	Extra                  map[string]any `yaml:",inline"`
}

type SplitTimeInfo struct {
	Sectors []Sector `yaml:"Sectors"`
}

type Sector struct {
	SectorNum      int     `yaml:"SectorNum"`
	SectorStartPct float64 `yaml:"SectorStartPct"`
}

// Parse preprocesses raw and decodes it into a Document.
func Parse(raw string) (*Document, error) {
	clean, err := Preprocess(raw)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal([]byte(clean), &doc); err != nil {
		return nil, fmt.Errorf("session: parse: %w", err)
	}
	return &doc, nil
}

// CurrentSession returns the session named by CurrentSessionNum.
func (d *Document) CurrentSession() (Session, bool) {
	for _, s := range d.SessionInfo.Sessions {
		if s.SessionNum == d.SessionInfo.CurrentSessionNum {
			return s, true
		}
	}
	return Session{}, false
}

// Driver returns the entry for carIdx.
func (d *Document) Driver(carIdx int) (Driver, bool) {
	for _, drv := range d.DriverInfo.Drivers {
		if drv.CarIdx == carIdx {
			return drv, true
		}
	}
	return Driver{}, false
}

// PlayerDriver returns the entry for the car the local user is driving.
func (d *Document) PlayerDriver() (Driver, bool) {
	return d.Driver(d.DriverInfo.DriverCarIdx)
}

// Summary is a one-line description used by the CLI.
func (d *Document) Summary() string {
	var b strings.Builder
	name := d.WeekendInfo.TrackDisplayName
	if name == "" {
		name = d.WeekendInfo.TrackName
	}
	b.WriteString(name)
	if s, ok := d.CurrentSession(); ok {
		fmt.Fprintf(&b, " | %s", s.SessionType)
		if s.SessionLaps != "" {
			fmt.Fprintf(&b, " (%s laps, %s)", s.SessionLaps, s.SessionTime)
		}
	}
	fmt.Fprintf(&b, " | %d drivers", len(d.DriverInfo.Drivers))
	return b.String()
}
