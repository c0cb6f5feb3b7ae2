package streamio

import (
	pkgif "github.com/dep2p/go-sessmux/pkg/interfaces"
)

// ProcessAllReadableRegions 循环窥视并消费全部可读区域
//
// 每段连续区域依次交给 fn，fn 返回后该区域即被消费。
// 循环直到没有数据且没有待投递的 FIN，返回是否已到达 FIN。
func ProcessAllReadableRegions(s pkgif.ReadStream, fn func(region []byte)) bool {
	for {
		peek := s.PeekNextReadableRegion()
		if !peek.HasData() {
			if peek.FinNext {
				return s.SkipBytes(0)
			}
			return false
		}
		fn(peek.Data)
		if s.SkipBytes(len(peek.Data)) {
			return true
		}
	}
}

// ReadAll 以零拷贝循环读出全部可读数据
func ReadAll(s pkgif.ReadStream) ([]byte, bool) {
	var out []byte
	fin := ProcessAllReadableRegions(s, func(region []byte) {
		out = append(out, region...)
	})
	return out, fin
}

// Write 写入单段数据
func Write(s pkgif.WriteStream, p []byte) error {
	return s.Writev([][]byte{p}, pkgif.WriteOptions{})
}

// SendFin 只发送 FIN
func SendFin(s pkgif.WriteStream) error {
	return s.Writev(nil, pkgif.WriteOptions{SendFin: true})
}

// TotalSize 返回多段数据的总字节数
func TotalSize(data [][]byte) int {
	n := 0
	for _, d := range data {
		n += len(d)
	}
	return n
}
