package user

import (
	"testing"

	"github.com/google/uuid"
)

func TestDefaultSettings(t *testing.T) {
	id := uuid.New()
	s := DefaultSettings(id)
	if s.UserID != id {
		t.Errorf("UserID = %v, want %v", s.UserID, id)
	}
	if s.Timezone != "UTC" || s.TimeFormat != "24h" {
		t.Errorf("defaults = %s/%s, want UTC/24h", s.Timezone, s.TimeFormat)
	}
	if len(s.DefaultChannels) != 1 || s.DefaultChannels[0] != ChannelPush {
		t.Errorf("default channels = %v, want [push]", s.DefaultChannels)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	valid := func() Settings {
		return Settings{
			Timezone:        "America/New_York",
			TimeFormat:      "12h",
			DefaultChannels: []string{ChannelPush, ChannelEmail},
		}
	}

	ok := valid()
	if err := ok.Validate(); err != nil {
		t.Errorf("valid settings rejected: %v", err)
	}

	badZone := valid()
	badZone.Timezone = "Mars/Olympus"
	if err := badZone.Validate(); err == nil {
		t.Error("invalid timezone accepted")
	}

	badFormat := valid()
	badFormat.TimeFormat = "13h"
	if err := badFormat.Validate(); err == nil {
		t.Error("invalid time format accepted")
	}

	badChannel := valid()
	badChannel.DefaultChannels = []string{"sms"}
	if err := badChannel.Validate(); err == nil {
		t.Error("unknown channel accepted")
	}

	dup := valid()
	dup.DefaultChannels = []string{ChannelPush, ChannelPush}
	if err := dup.Validate(); err == nil {
		t.Error("duplicate channel accepted")
	}

	none := valid()
	none.DefaultChannels = nil
	if err := none.Validate(); err != nil {
		t.Errorf("empty channel set rejected: %v", err)
	}
}
