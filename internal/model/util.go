package model

import (
	"fmt"
	"strconv"
)

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(v)
	}
}
