package interview

import "strconv"

func nodeKey(id uint8) string { return strconv.Itoa(int(id)) }

func uitoa(v uint16) string { return strconv.FormatUint(uint64(v), 10) }
