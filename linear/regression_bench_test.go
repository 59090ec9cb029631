package linear

import (
	"testing"
)

// BenchmarkLinearRegressionFit はFitメソッドのベンチマークを実行する
func BenchmarkLinearRegressionFit(b *testing.B) {
	sizes := []struct {
		name string
		rows int
		cols int
	}{
		{"Small_500x10", 500, 10},
		{"Medium_2000x10", 2000, 10}, // 並列処理の閾値を超える
		{"Large_10000x20", 10000, 20},
	}

	for _, size := range sizes {
		b.Run(size.name, func(b *testing.B) {
			X, y := makeLinearData(size.rows, size.cols, 0.1)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := NewLinearRegression().Fit(X, y); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkLinearRegressionFitRankDeficient はSVDフォールバックのベンチマーク
func BenchmarkLinearRegressionFitRankDeficient(b *testing.B) {
	X, y := makeLinearData(2000, 10, 0.1)
	for i := 0; i < 2000; i++ {
		X.Set(i, 9, X.At(i, 0))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := NewLinearRegression().Fit(X, y); err != nil {
			b.Fatal(err)
		}
	}
}
