package models

import "github.com/myrjola/resqlink/internal/errors"

// User is a community member on the honour board.
type User struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Score  int64    `json:"score"`
	Medals []string `json:"medals"`
}

func (u User) Key() int64 {
	return u.ID
}

type PointsMode string

const (
	PointsModeAdd PointsMode = "add"
	PointsModeSet PointsMode = "set"
)

var ErrInvalidPointsMode = errors.NewSentinel("points mode must be add or set")

// ParsePointsMode parses the mode of a point award. The empty string defaults to add.
func ParsePointsMode(s string) (PointsMode, error) {
	switch PointsMode(s) {
	case PointsModeAdd, "":
		return PointsModeAdd, nil
	case PointsModeSet:
		return PointsModeSet, nil
	default:
		return "", ErrInvalidPointsMode
	}
}
