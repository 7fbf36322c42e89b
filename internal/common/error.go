package common

import (
	"errors"
	"fmt"
)

type ErrNo struct {
	ErrCode int    `json:"err_code"`
	ErrMsg  string `json:"err_msg"`
}

const (
	SuccessCode = 0
	ServiceErr  = iota + 10000
	RequestInvalid
	TokenInvalid
	PasswordErr
	UserNotExists
	ConfigInvalid
	RunNotExists
	EnqueueFail
	GetHistoryFail
	WebhookInvalid
	SignatureInvalid
)

var errorMsg = map[int]string{
	SuccessCode:      "success",
	ServiceErr:       "service error",
	RequestInvalid:   "request invalid",
	TokenInvalid:     "token invalid",
	PasswordErr:      "password error",
	UserNotExists:    "user not exists",
	ConfigInvalid:    "gate config invalid",
	RunNotExists:     "run not exists",
	EnqueueFail:      "fail to enqueue run",
	GetHistoryFail:   "get run history fail",
	WebhookInvalid:   "webhook invalid",
	SignatureInvalid: "signature invalid",
}

func (e ErrNo) Error() string {
	return fmt.Sprintf("err_code=%d, err_msg=%s", e.ErrCode, e.ErrMsg)
}

func NewErrNo(errCode int) error {
	return ErrNo{
		ErrCode: errCode,
		ErrMsg:  errorMsg[errCode],
	}
}

func ConvertErr(err error) ErrNo {
	e := ErrNo{}
	if errors.As(err, &e) {
		return e
	}
	return ErrNo{
		ErrCode: ServiceErr,
		ErrMsg:  err.Error(),
	}
}
