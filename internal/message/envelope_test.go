package message

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"
)

const cameraJSON = `{"connected":true,"model":"Sony A6600","supports":{"shutter":true,"aperture":true,"iso":true,"liveview":true,"destination":true,"focus":true,"_bufTime":3000,"newISO":false},"ack":"3sxtjgfdr0","type":"camera"}`

func TestDecode_Camera(t *testing.T) {
	msg, err := Decode([]byte(cameraJSON))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	cam, ok := msg.(*Camera)
	if !ok {
		t.Fatalf("got %T, want *Camera", msg)
	}
	if !cam.Connected {
		t.Error("Connected = false, want true")
	}
	if cam.Model != "Sony A6600" {
		t.Errorf("Model = %q, want %q", cam.Model, "Sony A6600")
	}
	if cam.Ack != "3sxtjgfdr0" {
		t.Errorf("Ack = %q, want %q", cam.Ack, "3sxtjgfdr0")
	}
	if cam.Supports == nil {
		t.Fatal("Supports is nil")
	}
	if cam.Supports.BufTime != 3000 {
		t.Errorf("BufTime = %d, want 3000", cam.Supports.BufTime)
	}
	if cam.Supports.NewISO {
		t.Error("NewISO = true, want false")
	}
}

func TestDecode_CameraSupportsDefaults(t *testing.T) {
	tests := []struct {
		name         string
		data         string
		wantSupports bool
	}{
		{"missing", `{"connected":true,"model":"Test","type":"camera"}`, false},
		{"empty object", `{"connected":true,"model":"Test","type":"camera","supports":{}}`, false},
		{"partial", `{"connected":true,"model":"Test","type":"camera","supports":{"shutter":true}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.data))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			cam := msg.(*Camera)
			if (cam.Supports != nil) != tt.wantSupports {
				t.Fatalf("Supports = %+v, want present=%v", cam.Supports, tt.wantSupports)
			}
			if tt.wantSupports {
				if !cam.Supports.Shutter {
					t.Error("Shutter = false, want true")
				}
				if cam.Supports.Aperture {
					t.Error("Aperture = true, want false")
				}
			}
		})
	}
}

func TestDecode_UnknownType(t *testing.T) {
	raw := `{"type":"totally-unknown-xyz","foo":[1,2,3]}`

	msg, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	unk, ok := msg.(*Unknown)
	if !ok {
		t.Fatalf("got %T, want *Unknown", msg)
	}
	if unk.Type != "totally-unknown-xyz" {
		t.Errorf("Type = %q, want %q", unk.Type, "totally-unknown-xyz")
	}
	if unk.Raw != raw {
		t.Errorf("Raw = %q, want %q", unk.Raw, raw)
	}
	if unk.MessageType() != "totally-unknown-xyz" {
		t.Errorf("MessageType() = %q", unk.MessageType())
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantType string
		missing  bool
	}{
		{"not json", `{{{`, "", false},
		{"array", `[1,2]`, "", false},
		{"no type", `{"percentage":50}`, "", true},
		{"known type bad body", `{"type":"battery","percentage":"full"}`, "battery", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("err = %v, want *DecodeError", err)
			}
			if decErr.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", decErr.Type, tt.wantType)
			}
			if tt.missing && !errors.Is(err, ErrMissingType) {
				t.Errorf("err = %v, want ErrMissingType", err)
			}
		})
	}
}

func TestDecode_KnownTypes(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{`{"type":"pong"}`, TypePong},
		{`{"type":"nodevice"}`, TypeNoDevice},
		{`{"type":"battery","percentage":87.5,"charging":true}`, TypeBattery},
		{`{"type":"motion","nmxConnectedBt":1,"gmConnectedBt":0,"reload":false,"motors":[{"driver":"NMX","motor":1,"position":10,"unit":"steps","orientation":"pan","backlash":0}]}`, TypeMotion},
		{`{"type":"timelapse-clips","clips":[{"index":0,"id":12,"frames":300,"name":"TL-12","image":"AAAA"}]}`, TypeTimelapseClips},
		{`{"type":"timelapse-clips","clips":false}`, TypeTimelapseClips},
		{`{"type":"intervalometerStatus","status":{"running":true,"frames":10,"framesRemaining":90,"rampRate":0,"intervalMs":5000,"message":"running","rampEv":null,"autoSettings":{"paddingTimeMs":500},"exposure":{"status":{},"config":{}}}}`, TypeIntervalometerStatus},
		{`{"type":"timelapse-clip-info","ack":"x","info":{"id":1,"name":"TL-1","date":"2024-01-01","program":{},"status":{},"logfile":"","cameras":1,"primary_camera":1,"frames":null}}`, TypeTimelapseClipInfo},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			msg, err := Decode([]byte(tt.data))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if msg.MessageType() != tt.want {
				t.Errorf("MessageType() = %q, want %q", msg.MessageType(), tt.want)
			}
			if _, unknown := msg.(*Unknown); unknown {
				t.Errorf("decoded %q as Unknown", tt.want)
			}
		})
	}
}

func TestTypes(t *testing.T) {
	types := Types()
	if len(types) != 9 {
		t.Fatalf("Types() = %v, want 9 entries", types)
	}
	if !sort.StringsAreSorted(types) {
		t.Errorf("Types() = %v, want sorted", types)
	}
	for _, typ := range types {
		if !Known(typ) {
			t.Errorf("Known(%q) = false", typ)
		}
	}
	for _, typ := range []string{TypePing, TypeGet, TypeAuth, "totally-unknown-xyz"} {
		if Known(typ) {
			t.Errorf("Known(%q) = true, want false", typ)
		}
	}
}

func TestDecode_Settings(t *testing.T) {
	data := `{"type":"settings","settings":{"shutter":"1/100","aperture":"f/4","iso":"400",
		"details":{"shutter":{"name":"1/100","ev":-6.6,"list":[{"name":"1/100","ev":-6.6,"code":1,"duration_ms":10,"cameraName":"1/100"}]},
		"iso":{"name":"400","ev":-2,"list":{}}}}}`

	msg, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	s := msg.(*Settings)
	if s.Settings.Shutter != "1/100" {
		t.Errorf("Shutter = %q, want 1/100", s.Settings.Shutter)
	}
	if len(s.Settings.Details.Shutter.List) != 1 {
		t.Errorf("shutter list len = %d, want 1", len(s.Settings.Details.Shutter.List))
	}
	if len(s.Settings.Details.ISO.List) != 0 {
		t.Errorf("iso list len = %d, want 0 for non-array list", len(s.Settings.Details.ISO.List))
	}
	if s.Settings.Details.Aperture != nil {
		t.Error("Aperture details should be nil when absent")
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		msg  Outbound
		want string
	}{
		{"ping", Ping{}, `{"type":"ping"}`},
		{"session", Session{Session: "tok"}, `{"session":"tok","type":"auth"}`},
		{"get", Get{Key: "settings"}, `{"key":"settings","type":"get"}`},
		{"request clips", RequestClips{}, `{"type":"timelapse-clips"}`},
		{"command", Command{Type: "capture", Fields: map[string]any{"count": 1}}, `{"count":1,"type":"capture"}`},
		{"command without fields", Command{Type: "preview"}, `{"type":"preview"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode = %s, want %s", got, tt.want)
			}

			var obj map[string]any
			if err := json.Unmarshal(got, &obj); err != nil {
				t.Fatalf("frame is not a JSON object: %v", err)
			}
		})
	}
}
