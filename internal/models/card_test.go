package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinInfo_TargetLength(t *testing.T) {
	pickFirst := func(choices ...int) int { return choices[0] }
	pickLast := func(choices ...int) int { return choices[len(choices)-1] }

	tests := []struct {
		name  string
		brand string
		pick  func(...int) int
		want  int
	}{
		{"amex is always 15", "AMERICAN EXPRESS", pickFirst, 15},
		{"amex short form", "AMEX", pickLast, 15},
		{"diners first alternative", "DINERS CLUB INTERNATIONAL", pickFirst, 14},
		{"diners second alternative", "DINERS CLUB INTERNATIONAL", pickLast, 16},
		{"discover first alternative", "DISCOVER", pickFirst, 16},
		{"discover second alternative", "DISCOVER", pickLast, 19},
		{"visa default", "VISA", pickFirst, 16},
		{"unknown brand default", "", pickFirst, 16},
		{"lowercase brand", "american express", pickFirst, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := &BinInfo{Brand: tt.brand}
			assert.Equal(t, tt.want, info.TargetLength(tt.pick))
		})
	}

	t.Run("nil info and nil picker", func(t *testing.T) {
		var info *BinInfo
		assert.Equal(t, 16, info.TargetLength(nil))
	})
}

func TestBinInfo_IsPrepaid(t *testing.T) {
	assert.True(t, (&BinInfo{Type: "PREPAID"}).IsPrepaid())
	assert.True(t, (&BinInfo{Type: "prepaid debit"}).IsPrepaid())
	assert.False(t, (&BinInfo{Type: "CREDIT"}).IsPrepaid())
	assert.False(t, (&BinInfo{}).IsPrepaid())

	var nilInfo *BinInfo
	assert.False(t, nilInfo.IsPrepaid())
}

func TestFormatCardNumber(t *testing.T) {
	tests := []struct {
		number string
		want   string
	}{
		{"378282246310005", "3782 822463 10005"},
		{"4111111111111111", "4111 1111 1111 1111"},
		{"4111111111111111111", "4111 1111 1111 1111 111"},
		{"36000000000008", "3600 0000 0000 08"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCardNumber(tt.number))
	}
}
