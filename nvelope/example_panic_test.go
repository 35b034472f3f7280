package nvelope_test

import (
	"fmt"
	"strings"

	"github.com/muir/napi/nvelope"
)

func ExampleCatchPanic() {
	lookup := func(notes map[int64]string, id int64) (string, error) {
		var content string
		err := nvelope.CatchPanic(nvelope.NoLogger(), func() error {
			notes[id] = strings.ToUpper(notes[id])
			content = notes[id]
			return nil
		})
		return content, err
	}

	content, err := lookup(map[int64]string{1: "milk"}, 1)
	fmt.Println(content, err)

	_, err = lookup(nil, 1)
	fmt.Println(err)
	pe, ok := nvelope.AsPanic(err)
	fmt.Println(ok, len(pe.Stack) > 0)
	// Output: MILK <nil>
	// panic: assignment to entry in nil map
	// true true
}

func ExampleSetErrorOnPanic() {
	parse := func(ids []int64, i int) (id int64, err error) {
		defer nvelope.SetErrorOnPanic(&err, nvelope.NoLogger())
		return ids[i], nil
	}
	_, err := parse([]int64{7}, 3)
	fmt.Println(err)
	_, ok := nvelope.AsPanic(fmt.Errorf("plain"))
	fmt.Println(ok)
	// Output: panic: runtime error: index out of range [3] with length 1
	// false
}
