package controllers

import "errors"

var (
	errLoginExpected  = errors.New("first frame must be login")
	errDeviceMismatch = errors.New("token does not match device")
)
