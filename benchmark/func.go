package benchmark

import (
	"fmt"
	"time"

	"github.com/osmike/lfucache"
)

func slowFunc(ms int) (string, error) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
	return fmt.Sprintf("result %d", ms), nil
}

func slowFetch(a lfucache.Args) (string, error) {
	ms, _ := a.Positional[0].(int)
	return slowFunc(ms)
}
