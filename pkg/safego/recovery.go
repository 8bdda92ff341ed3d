package safego

import (
	"context"
	"runtime/debug"

	"github.com/hatcher/taskchat/pkg/logs"
)

// Recovery 捕获panic
func Recovery(ctx context.Context) {
	e := recover()
	if e == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logs.Errorf("[Recovery] cache panic error = %v \n stacktrace = \n%s", e, string(debug.Stack()))
}
