package adapter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type refusingAdapter struct{}

func (refusingAdapter) AdjustStorageGroups(delta int32) error {
	if delta > 0 {
		return errors.New("quota exceeded")
	}
	return nil
}
func (refusingAdapter) AdjustTimeSeries(int32) error { return nil }
func (refusingAdapter) InitCounter(string)           {}
func (refusingAdapter) DeleteCounter(string)         {}

func TestVetoingParameterAdapterTranslatesError(t *testing.T) {
	v := VetoingParameterAdapter{Inner: refusingAdapter{}}
	err := v.AdjustStorageGroups(1)
	assert.Error(t, err)

	err = v.AdjustStorageGroups(-1)
	assert.NoError(t, err)
}

func TestNoopParameterAdapterNeverVetoes(t *testing.T) {
	var a NoopParameterAdapter
	assert.NoError(t, a.AdjustStorageGroups(100))
	assert.NoError(t, a.AdjustTimeSeries(100))
}

func TestNoopStorageEngine(t *testing.T) {
	var e NoopStorageEngine
	assert.NoError(t, e.DeleteAllDataFiles("root.sg1"))
}
