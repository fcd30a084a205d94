package database

import "errors"

var (
	// ErrUnknownGroup: データベースに存在しない官能基名が指定された。
	ErrUnknownGroup = errors.New("unknown group")
	// ErrInvalidRecord: CSV のレコードが不正（重複、負の値など）。
	ErrInvalidRecord = errors.New("invalid parameter record")
)
