package hotkey

import (
	"reflect"
	"testing"
)

func TestParseHotkey(t *testing.T) {
	cases := []struct {
		input string
		want  []string
	}{
		{"Ctrl+Alt+T", []string{"ctrl", "alt", "t"}},
		{"ctrl + shift + q", []string{"ctrl", "shift", "q"}},
		{"Win+Space", []string{"cmd", "space"}},
		{"Super+F5", []string{"cmd", "f5"}},
		{"i", []string{"i"}},
		{"Ctrl++", []string{"ctrl"}},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got := parseHotkey(tc.input)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("parseHotkey(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestKeyNameToRawcodes(t *testing.T) {
	cases := []struct {
		name string
		want []uint16
	}{
		{"ctrl", []uint16{162, 163}},
		{"alt", []uint16{164, 165}},
		{"shift", []uint16{160, 161}},
		{"cmd", []uint16{91, 92}},
		{"a", []uint16{65}},
		{"t", []uint16{84}},
		{"z", []uint16{90}},
		{"0", []uint16{48}},
		{"9", []uint16{57}},
		{"f1", []uint16{112}},
		{"f12", []uint16{123}},
		{"f24", []uint16{135}},
		{"esc", []uint16{27}},
		{"space", []uint16{32}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := keyNameToRawcodes(tc.name)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("keyNameToRawcodes(%q) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestKeyNameToRawcodesUnknown(t *testing.T) {
	for _, name := range []string{"f25", "f0", "fx", "ключ", ""} {
		if got := keyNameToRawcodes(name); got != nil {
			t.Errorf("Expected nil for unknown key %q, got %v", name, got)
		}
	}
}

func TestMarkAndAllPressed(t *testing.T) {
	states := []keyState{
		{name: "ctrl", rawcodes: []uint16{162, 163}},
		{name: "t", rawcodes: []uint16{84}},
	}

	if allPressed(states) {
		t.Error("Expected not all pressed initially")
	}

	markPressed(states, 163, true) // right ctrl counts too
	markPressed(states, 84, true)
	if !allPressed(states) {
		t.Error("Expected all pressed after both keys down")
	}

	markPressed(states, 84, false)
	if allPressed(states) {
		t.Error("Expected not all pressed after key up")
	}
}
