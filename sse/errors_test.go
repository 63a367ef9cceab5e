package sse

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsError(t *testing.T) {
	sdkErr := errors.New(`POST "https://api.openai.com/v1/chat/completions": 401 Unauthorized`)

	tests := []struct {
		name string
		err  error
		kind Kind
		msg  string
	}{
		{"client error", &Error{Kind: KindHTTP, Status: 502}, KindHTTP, "요청이 실패했습니다: 502"},
		{"canceled", context.Canceled, KindCanceled, "요청이 취소되었습니다"},
		{"wrapped deadline", fmt.Errorf("stream: %w", context.DeadlineExceeded), KindTimeout, "요청 시간이 초과되었습니다"},
		{"foreign", sdkErr, KindUnknown, "알 수 없는 오류가 발생했습니다."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := AsError(tt.err)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.msg, e.Error())
		})
	}

	assert.ErrorIs(t, AsError(sdkErr), sdkErr, "the cause stays reachable")
	assert.Nil(t, AsError(nil))
}
