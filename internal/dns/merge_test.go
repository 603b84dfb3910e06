package dns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRecordName = "api.example.com."

func TestMerge_AbsentRecord(t *testing.T) {
	mine := Item{Location: "us", Addresses: []string{"1.2.3.4"}}

	got := Merge(nil, mine, 300, false, testRecordName)

	require.Len(t, got.Items, 1)
	assert.Equal(t, "us", got.Items[0].Location)
	assert.Equal(t, []string{"1.2.3.4"}, got.Items[0].Addresses)
	assert.Equal(t, testRecordName, got.Name)
	assert.Equal(t, TypeA, got.Type)
	assert.Equal(t, int64(300), got.TTL)
	assert.NoError(t, got.Validate())
}

func TestMerge_AddsNewLocation(t *testing.T) {
	current := &Record{
		Name: testRecordName,
		Type: TypeA,
		TTL:  300,
		Items: []Item{
			{Location: "us", Addresses: []string{"1.2.3.4"}},
		},
	}
	mine := Item{Location: "eu", Addresses: []string{"5.6.7.8"}}

	got := Merge(current, mine, 300, false, testRecordName)

	require.Len(t, got.Items, 2)
	assert.Equal(t, "eu", got.Items[0].Location)
	assert.Equal(t, []string{"5.6.7.8"}, got.Items[0].Addresses)
	assert.Equal(t, "us", got.Items[1].Location)
	assert.Equal(t, []string{"1.2.3.4"}, got.Items[1].Addresses)
}

func TestMerge_ReplacesOwnItemOnly(t *testing.T) {
	current := &Record{
		Name: testRecordName,
		Type: TypeA,
		TTL:  300,
		Items: []Item{
			{Location: "us", Addresses: []string{"1.2.3.4"}},
			{Location: "eu", Addresses: []string{"5.6.7.8"}},
		},
	}
	mine := Item{Location: "us", Addresses: []string{"9.9.9.9"}}

	got := Merge(current, mine, 300, false, testRecordName)

	require.Len(t, got.Items, 2)
	assert.Equal(t, []string{"5.6.7.8"}, got.Items[0].Addresses, "eu item must pass through verbatim")
	assert.Equal(t, []string{"9.9.9.9"}, got.Items[1].Addresses)
}

func TestMerge_Idempotent(t *testing.T) {
	current := &Record{
		Name: testRecordName,
		Type: TypeA,
		TTL:  300,
		Items: []Item{
			{Location: "eu", Addresses: []string{"5.6.7.8"}},
			{Location: "asia", Addresses: []string{"7.7.7.7", "7.7.7.8"}},
		},
	}
	mine := Item{Location: "us", Addresses: []string{"1.2.3.4"}}

	once := Merge(current, mine, 300, false, testRecordName)
	twice := Merge(&once, mine, 300, false, testRecordName)

	assert.True(t, once.Equal(twice))
	assert.Equal(t, once, twice)
}

func TestMerge_ScalarsComeFromCaller(t *testing.T) {
	current := &Record{
		Name:           testRecordName,
		Type:           TypeA,
		TTL:            300,
		FencingEnabled: false,
		Items: []Item{
			{Location: "eu", Addresses: []string{"5.6.7.8"}},
		},
	}
	mine := Item{Location: "us", Addresses: []string{"1.2.3.4"}}

	got := Merge(current, mine, 600, true, testRecordName)

	assert.Equal(t, int64(600), got.TTL)
	assert.True(t, got.FencingEnabled)
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	current := &Record{
		Name: testRecordName,
		Type: TypeA,
		TTL:  300,
		Items: []Item{
			{Location: "eu", Addresses: []string{"5.6.7.8"}},
		},
	}
	mine := Item{Location: "us", Addresses: []string{"1.2.3.4"}}

	got := Merge(current, mine, 300, false, testRecordName)
	got.Items[0].Addresses[0] = "mutated"
	got.Items[1].Addresses[0] = "mutated"

	assert.Equal(t, "5.6.7.8", current.Items[0].Addresses[0])
	assert.Equal(t, "1.2.3.4", mine.Addresses[0])
}

func TestMerge_Deterministic(t *testing.T) {
	a := &Record{
		Name: testRecordName,
		Type: TypeA,
		TTL:  300,
		Items: []Item{
			{Location: "eu", Addresses: []string{"5.6.7.8"}},
			{Location: "asia", Addresses: []string{"7.7.7.7"}},
		},
	}
	b := &Record{
		Name: testRecordName,
		Type: TypeA,
		TTL:  300,
		Items: []Item{
			{Location: "asia", Addresses: []string{"7.7.7.7"}},
			{Location: "eu", Addresses: []string{"5.6.7.8"}},
		},
	}
	mine := Item{Location: "us", Addresses: []string{"1.2.3.4"}}

	assert.Equal(t, Merge(a, mine, 300, false, testRecordName), Merge(b, mine, 300, false, testRecordName))
}
