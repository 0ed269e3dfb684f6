package message

import (
	"bytes"
	"encoding/json"
)

// Inbound discriminators.
const (
	TypePong                 = "pong"
	TypeBattery              = "battery"
	TypeNoDevice             = "nodevice"
	TypeCamera               = "camera"
	TypeSettings             = "settings"
	TypeIntervalometerStatus = "intervalometerStatus"
	TypeMotion               = "motion"
	TypeTimelapseClips       = "timelapse-clips"
	TypeTimelapseClipInfo    = "timelapse-clip-info"
)

// Unknown carries a frame whose discriminator has no decoder.
type Unknown struct {
	Type string
	Raw  string
}

func (m *Unknown) MessageType() string { return m.Type }

// Pong answers a Ping.
type Pong struct{}

func (*Pong) MessageType() string { return TypePong }

// NoDevice reports that no camera is attached to the controller.
type NoDevice struct{}

func (*NoDevice) MessageType() string { return TypeNoDevice }

// Battery is the controller's own battery state.
type Battery struct {
	Percentage float64 `json:"percentage"`
	Charging   bool    `json:"charging"`
}

func (*Battery) MessageType() string { return TypeBattery }

// Camera reports the attached camera and what it supports.
type Camera struct {
	Connected bool
	Model     string
	Supports  *CameraFeatures // nil when the device sends an empty object
	Ack       string
}

func (*Camera) MessageType() string { return TypeCamera }

// CameraFeatures lists the controls a camera model exposes.
type CameraFeatures struct {
	Shutter     bool `json:"shutter"`
	Aperture    bool `json:"aperture"`
	ISO         bool `json:"iso"`
	LiveView    bool `json:"liveview"`
	Destination bool `json:"destination"`
	Focus       bool `json:"focus"`
	BufTime     int  `json:"_bufTime"`
	NewISO      bool `json:"newISO"`
}

func (m *Camera) UnmarshalJSON(data []byte) error {
	var wire struct {
		Connected bool            `json:"connected"`
		Model     string          `json:"model"`
		Supports  json.RawMessage `json:"supports"`
		Ack       string          `json:"ack"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	m.Connected = wire.Connected
	m.Model = wire.Model
	m.Ack = wire.Ack
	m.Supports = nil

	supports := bytes.TrimSpace(wire.Supports)
	if len(supports) == 0 || supports[0] != '{' {
		return nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(supports, &probe); err != nil {
		return err
	}
	if len(probe) == 0 {
		return nil
	}
	var features CameraFeatures
	if err := json.Unmarshal(supports, &features); err != nil {
		return err
	}
	m.Supports = &features
	return nil
}

// Settings is the current exposure configuration of the camera.
type Settings struct {
	Settings CameraSettings `json:"settings"`
}

func (*Settings) MessageType() string { return TypeSettings }

// CameraSettings holds the active exposure values and their option lists.
type CameraSettings struct {
	Shutter  string        `json:"shutter"`
	Aperture string        `json:"aperture"`
	ISO      string        `json:"iso"`
	Battery  *float64      `json:"battery,omitempty"`
	FocusPos *float64      `json:"focusPos,omitempty"`
	Details  CameraDetails `json:"details"`
}

// CameraDetails describes each exposure axis in detail.
type CameraDetails struct {
	Shutter  ExposureAxis  `json:"shutter"`
	Aperture *ExposureAxis `json:"aperture,omitempty"`
	ISO      ExposureAxis  `json:"iso"`
}

// ExposureAxis is one of shutter, aperture or ISO.
type ExposureAxis struct {
	Name       string                 `json:"name"`
	EV         *float64               `json:"ev,omitempty"`
	Code       *int                   `json:"code,omitempty"`
	CameraName string                 `json:"cameraName,omitempty"`
	List       FlexList[ExposureStop] `json:"list"`
}

// ExposureStop is a selectable value of an exposure axis.
type ExposureStop struct {
	Name       string   `json:"name"`
	EV         *float64 `json:"ev,omitempty"`
	Code       int      `json:"code"`
	DurationMs *int     `json:"duration_ms,omitempty"`
	CameraName string   `json:"cameraName,omitempty"`
	Value      *float64 `json:"value,omitempty"`
}

// IntervalometerStatus reports the progress of the running program.
type IntervalometerStatus struct {
	Status IntervalStatus `json:"status"`
	Ack    string         `json:"ack,omitempty"`
}

func (*IntervalometerStatus) MessageType() string { return TypeIntervalometerStatus }

// IntervalStatus is the body of an intervalometerStatus frame.
type IntervalStatus struct {
	Running         bool           `json:"running"`
	Frames          int            `json:"frames"`
	FramesRemaining int            `json:"framesRemaining"`
	RampRate        float64        `json:"rampRate"`
	IntervalMs      int            `json:"intervalMs"`
	Message         string         `json:"message"`
	RampEV          *float64       `json:"rampEv"`
	AutoSettings    AutoSettings   `json:"autoSettings"`
	Exposure        ExposureReport `json:"exposure"`
}

// AutoSettings are the intervalometer's automatic timing settings.
type AutoSettings struct {
	PaddingTimeMs int `json:"paddingTimeMs"`
}

// ExposureReport is kept raw because its keys vary by ramp algorithm.
type ExposureReport struct {
	Status map[string]json.RawMessage `json:"status"`
	Config map[string]json.RawMessage `json:"config"`
}

// Motion reports attached motion-control hardware.
type Motion struct {
	NMXConnectedBT int     `json:"nmxConnectedBt"`
	GMConnectedBT  int     `json:"gmConnectedBt"`
	Reload         bool    `json:"reload"`
	Motors         []Motor `json:"motors"`
}

func (*Motion) MessageType() string { return TypeMotion }

// Motor is one axis of a motion controller.
type Motor struct {
	Driver      string `json:"driver"`
	Motor       int    `json:"motor"`
	Connected   *bool  `json:"connected,omitempty"`
	Position    int    `json:"position"`
	Unit        string `json:"unit"`
	Orientation string `json:"orientation"`
	Backlash    int    `json:"backlash"`
}

// TimelapseClips lists the clips stored on the device.
type TimelapseClips struct {
	Clips FlexList[Clip] `json:"clips"`
}

func (*TimelapseClips) MessageType() string { return TypeTimelapseClips }

// Clip is a summary of one recorded time-lapse.
type Clip struct {
	Index  int    `json:"index"`
	ID     int    `json:"id"`
	Frames int    `json:"frames"`
	Name   string `json:"name"`
	Image  string `json:"image"` // base64 JPEG thumbnail
}

// TimelapseClipInfo carries the detail of one clip. The program block is
// kept raw; interpreting it is up to the application.
type TimelapseClipInfo struct {
	Info ClipInfo `json:"info"`
	Ack  string   `json:"ack"`
}

func (*TimelapseClipInfo) MessageType() string { return TypeTimelapseClipInfo }

// ClipInfo is the body of a timelapse-clip-info frame.
type ClipInfo struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	Date          string          `json:"date"`
	Program       json.RawMessage `json:"program"`
	Status        json.RawMessage `json:"status"`
	Logfile       string          `json:"logfile"`
	Cameras       int             `json:"cameras"`
	PrimaryCamera int             `json:"primary_camera"`
	Thumbnail     string          `json:"thumbnail,omitempty"`
	Frames        *int            `json:"frames"`
	Path          string          `json:"path,omitempty"`
}

// FlexList decodes a JSON array and treats any other value as empty.
// Some firmware versions send false or {} where a list is expected.
type FlexList[T any] []T

func (l *FlexList[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		*l = nil
		return nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = items
	return nil
}
