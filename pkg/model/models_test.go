package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampFrequencyValue(t *testing.T) {
	tests := []struct {
		name string
		ft   FrequencyType
		in   int
		want int
	}{
		{"zero", FrequencyDaily, 0, 1},
		{"negative", FrequencyHourly, -5, 1},
		{"in range", FrequencyHourly, 8, 8},
		{"hourly cap", FrequencyHourly, 3000000, MaxHourlyFrequency},
		{"daily cap", FrequencyDaily, math.MaxInt, MaxDailyFrequency},
		{"weekly cap", FrequencyWeekly, MaxWeeklyFrequency + 1, MaxWeeklyFrequency},
		{"as needed uses daily cap", FrequencyAsNeeded, 10000, MaxDailyFrequency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampFrequencyValue(tt.ft, tt.in))
		})
	}
}

func TestMedication_Normalize(t *testing.T) {
	med := Medication{
		FrequencyType:  "hourly",
		FrequencyValue: 3000000,
		Inventory:      -3,
	}

	med.Normalize()

	assert.Equal(t, FrequencyHourly, med.FrequencyType)
	assert.Equal(t, MaxHourlyFrequency, med.FrequencyValue)
	assert.Equal(t, 0, med.Inventory)
	assert.Equal(t, "pill", med.Icon)
	assert.Nil(t, med.NextDose)
}

func TestMedication_NormalizeUnknownKind(t *testing.T) {
	med := Medication{FrequencyType: "MONTHLY", FrequencyValue: 9000}

	med.Normalize()

	assert.Equal(t, FrequencyDaily, med.FrequencyType)
	assert.Equal(t, MaxDailyFrequency, med.FrequencyValue)
}
