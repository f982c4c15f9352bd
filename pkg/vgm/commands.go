package vgm

type handler uint8

const (
	opUnknown handler = iota
	opReserved
	opToneWrite
	opAuxWrite
	opWait
	opWaitNTSC
	opWaitPAL
	opShortWait
	opDACWait
	opDataBlock
	opPCMWrite
	opEnd
)

const (
	cmdToneWrite = 0x50
	cmdWait      = 0x61
	cmdWaitNTSC  = 0x62
	cmdWaitPAL   = 0x63
	cmdEnd       = 0x66
	cmdDataBlock = 0x67
	cmdPCMWrite  = 0x68
	cmdAuxWrite  = 0xa0

	blockMarker = cmdEnd

	// PCM RAM write operands after the marker.
	pcmWritePayload = 13

	samplesNTSC = 735
	samplesPAL  = 882
)

// command is one row of the opcode table. payload is the fixed number of operand
// bytes; data blocks and PCM writes read their operands themselves.
type command struct {
	h       handler
	payload uint8
}

var commands [256]command

func init() {
	set := func(lo, hi int, h handler, payload uint8) {
		for op := lo; op <= hi; op++ {
			commands[op] = command{h, payload}
		}
	}

	set(0x30, 0x3f, opReserved, 1)
	set(0x40, 0x4e, opReserved, 2)
	set(0x4f, 0x4f, opReserved, 1) // Game Gear stereo
	set(cmdToneWrite, cmdToneWrite, opToneWrite, 1)
	set(0x51, 0x5f, opReserved, 2) // Yamaha FM chips
	set(cmdWait, cmdWait, opWait, 2)
	set(cmdWaitNTSC, cmdWaitNTSC, opWaitNTSC, 0)
	set(cmdWaitPAL, cmdWaitPAL, opWaitPAL, 0)
	set(cmdEnd, cmdEnd, opEnd, 0)
	set(cmdDataBlock, cmdDataBlock, opDataBlock, 0)
	set(cmdPCMWrite, cmdPCMWrite, opPCMWrite, 0)
	set(0x70, 0x7f, opShortWait, 0)
	set(0x80, 0x8f, opDACWait, 0) // YM2612 DAC write from the data bank, then wait
	set(0x90, 0x91, opReserved, 4) // DAC stream setup and data
	set(0x92, 0x92, opReserved, 5)
	set(0x93, 0x93, opReserved, 10)
	set(0x94, 0x94, opReserved, 1)
	set(0x95, 0x95, opReserved, 4)
	set(cmdAuxWrite, cmdAuxWrite, opAuxWrite, 2)
	set(0xa1, 0xbf, opReserved, 2)
	set(0xc0, 0xdf, opReserved, 3)
	set(0xe0, 0xff, opReserved, 4)
}

// PayloadLen reports the fixed operand length of op and whether op is known.
// Data blocks and PCM writes report 0 because their length is read from the stream.
func PayloadLen(op byte) (int, bool) {
	c := commands[op]
	return int(c.payload), c.h != opUnknown
}
