//go:build frictiondebug

package friction

import "fmt"

func checkDivisor(divisor float64, face, point int) {
	if !(divisor > 0) {
		panic(fmt.Sprintf("friction: non-positive divisor %g at face %d point %d", divisor, face, point))
	}
}
