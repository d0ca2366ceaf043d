package domain

import "testing"

func TestCanAddress(t *testing.T) {
	cases := []struct {
		name     string
		sender   Role
		receiver Role
		want     bool
	}{
		{"normal to privileged", RoleNormal, RolePrivileged, true},
		{"privileged to normal", RolePrivileged, RoleNormal, true},
		{"privileged to privileged", RolePrivileged, RolePrivileged, true},
		{"normal to normal", RoleNormal, RoleNormal, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAddress(tc.sender, tc.receiver); got != tc.want {
				t.Errorf("CanAddress(%s, %s) = %v, want %v", tc.sender, tc.receiver, got, tc.want)
			}
		})
	}
}

func TestRole_Valid(t *testing.T) {
	if !RoleNormal.Valid() || !RolePrivileged.Valid() {
		t.Error("known roles must be valid")
	}
	if Role("admin").Valid() {
		t.Error("unknown role must be invalid")
	}
}

func TestMessageKind_Valid(t *testing.T) {
	for _, k := range []MessageKind{KindText, KindImage, KindVideo, KindVoice} {
		if !k.Valid() {
			t.Errorf("kind %q must be valid", k)
		}
	}
	if MessageKind("sticker").Valid() {
		t.Error("unknown kind must be invalid")
	}
}
