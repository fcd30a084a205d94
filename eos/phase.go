package eos

// 相の種類
type Phase string

// 相の種類
const (
	Liquid Phase = "L"
	Vapor  Phase = "V"
)

// 相の名称
func (p Phase) String() string {
	switch p {
	case Liquid:
		return "liquid"
	case Vapor:
		return "vapor"
	default:
		panic("invalid phase")
	}
}

// 有効な相か否か
func (p Phase) valid() bool {
	return p == Liquid || p == Vapor
}
