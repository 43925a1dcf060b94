package dfgconfig

import "errors"

// errMalformedLine reports a DAFL_DFG_SCORE line that lacks the score, the
// path_count or a non-empty target after the first two spaces, or whose
// numbers don't parse, and a DAFL_SELECTIVE_COV line without a colon.
var errMalformedLine = errors.New("malformed dfg score line")
