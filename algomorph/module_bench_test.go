package algomorph

import "testing"

func BenchmarkProcess16Channels(b *testing.B) {
	m := New(testSampleRate, nil)
	m.Bank().ToggleDiagonal(0, 0, 0)
	m.Bank().ToggleHorizontal(1, 2)
	var in Frame
	for op := 0; op < 4; op++ {
		in.OperatorChannels[op] = MaxChannels
		for c := 0; c < MaxChannels; c++ {
			in.Operators[op][c] = float32(op+c) / 10
		}
	}
	in.MorphChannels = MaxChannels
	var out Output
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		in.Morph[i%MaxChannels] = float32(i%1000) / 100
		m.Process(&in, &out)
	}
}
