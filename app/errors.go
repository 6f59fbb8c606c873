package app

import "errors"

// errNothingToDo aborts a store update that would not change anything, so
// the document is not marked dirty.
var errNothingToDo = errors.New("nothing to do")
