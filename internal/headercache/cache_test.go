package headercache

import "testing"

type testHeader struct {
	Length int
}

type testUpdateFields struct {
	SampleRate int
}

func TestGetHeaderMissBeforeSet(t *testing.T) {
	c := New[testHeader, testUpdateFields]()
	if _, ok := c.GetHeader("a"); ok {
		t.Fatalf("expected miss on empty cache")
	}
}

func TestSetHeaderNoopWhenDisabled(t *testing.T) {
	c := New[testHeader, testUpdateFields]()
	c.SetHeader("a", testHeader{Length: 4}, testUpdateFields{SampleRate: 44100})
	if _, ok := c.GetHeader("a"); ok {
		t.Fatalf("expected SetHeader to be a no-op while disabled")
	}
}

func TestSetHeaderAfterEnable(t *testing.T) {
	c := New[testHeader, testUpdateFields]()
	c.Enable()
	c.SetHeader("a", testHeader{Length: 4}, testUpdateFields{SampleRate: 44100})

	h, ok := c.GetHeader("a")
	if !ok || h.Length != 4 {
		t.Fatalf("expected cached header, got %+v ok=%v", h, ok)
	}
}

func TestResetDisablesAndClears(t *testing.T) {
	c := New[testHeader, testUpdateFields]()
	c.Enable()
	c.SetHeader("a", testHeader{Length: 4}, testUpdateFields{})
	c.Reset()

	if c.Enabled() {
		t.Fatalf("expected cache disabled after reset")
	}
	if _, ok := c.GetHeader("a"); ok {
		t.Fatalf("expected cache cleared after reset")
	}
}

func TestCheckCodecUpdateFiresOnBitrateChange(t *testing.T) {
	c := New[testHeader, testUpdateFields]()
	c.Enable()
	c.SetHeader("a", testHeader{}, testUpdateFields{SampleRate: 44100})
	c.GetHeader("a")

	var calls int
	c.CheckCodecUpdate(128000, func(fields testUpdateFields, bitrate int) {
		calls++
	})
	if calls != 1 {
		t.Fatalf("expected callback on first observation, got %d calls", calls)
	}

	calls = 0
	c.CheckCodecUpdate(128000, func(fields testUpdateFields, bitrate int) {
		calls++
	})
	if calls != 0 {
		t.Fatalf("expected no callback when bitrate unchanged, got %d calls", calls)
	}

	c.CheckCodecUpdate(192000, func(fields testUpdateFields, bitrate int) {
		calls++
	})
	if calls != 1 {
		t.Fatalf("expected callback when bitrate changed, got %d calls", calls)
	}
}

func TestCheckCodecUpdateFiresOnKeyChange(t *testing.T) {
	c := New[testHeader, testUpdateFields]()
	c.Enable()
	c.SetHeader("a", testHeader{}, testUpdateFields{SampleRate: 44100})
	c.SetHeader("b", testHeader{}, testUpdateFields{SampleRate: 48000})

	c.GetHeader("a")
	c.CheckCodecUpdate(128000, func(fields testUpdateFields, bitrate int) {})

	c.GetHeader("b")
	var got testUpdateFields
	c.CheckCodecUpdate(128000, func(fields testUpdateFields, bitrate int) {
		got = fields
	})
	if got.SampleRate != 48000 {
		t.Fatalf("expected update fields from new key, got %+v", got)
	}
}
