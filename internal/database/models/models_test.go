package models

import "testing"

func TestSettingTableName(t *testing.T) {
	if got := (Setting{}).TableName(); got != "settings" {
		t.Errorf("Setting.TableName() = %q, want %q", got, "settings")
	}
}
