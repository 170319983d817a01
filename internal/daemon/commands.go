package daemon

// Cmd is the closed command enum from spec.md §4.4.
type Cmd uint16

const (
	CmdNone Cmd = iota

	CmdOpenChip
	CmdCloseChip
	CmdClaimInput
	CmdClaimOutput
	CmdClaimAlert
	CmdGroupClaimInput
	CmdGroupClaimOutput
	CmdFree
	CmdRead
	CmdWrite
	CmdGetLineInfo
	CmdGetChipInfo
	CmdGetChipCensus
	CmdSetDebounce
	CmdSetWatchdog

	CmdTxPulse
	CmdTxPWM
	CmdTxServo
	CmdTxWave
	CmdTxStop
	CmdTxBusy
	CmdTxRoom

	CmdOpenI2C
	CmdCloseI2C
	CmdI2CWriteQuick
	CmdI2CWriteByte
	CmdI2CReadByte
	CmdI2CWriteWord
	CmdI2CReadWord
	CmdI2CWriteBlock
	CmdI2CReadBlock

	CmdOpenSPI
	CmdCloseSPI
	CmdSPIXfer
	CmdSPIRead
	CmdSPIWrite

	CmdOpenSerial
	CmdCloseSerial
	CmdSerialRead
	CmdSerialWrite

	CmdOpenFile
	CmdCloseFile
	CmdFileRead
	CmdFileWrite
	CmdFileSeek
	CmdFileGlob

	CmdScriptStore
	CmdScriptRun
	CmdScriptStop
	CmdScriptStatus
	CmdScriptUpdate
	CmdScriptDelete

	CmdNotifyOpen
	CmdNotifyPause
	CmdNotifyResume
	CmdNotifyClose

	CmdSetUser
	CmdSetShareID
	CmdUseShareID
	CmdGetSBCName
	CmdRGPIOVersion

	CmdShellExec

	cmdCount
)

// CommandGroups lists the commands that make up each named command group.
// permit.Load does not consult it: a [perms] cmdlist is read as numeric
// command codes only, and a group name in it is skipped.
var CommandGroups = map[string][]Cmd{
	"gpio": {
		CmdOpenChip, CmdCloseChip, CmdClaimInput, CmdClaimOutput, CmdClaimAlert,
		CmdGroupClaimInput, CmdGroupClaimOutput, CmdFree, CmdRead, CmdWrite,
		CmdGetLineInfo, CmdGetChipInfo, CmdGetChipCensus, CmdSetDebounce, CmdSetWatchdog,
	},
	"tx": {
		CmdTxPulse, CmdTxPWM, CmdTxServo, CmdTxWave, CmdTxStop, CmdTxBusy, CmdTxRoom,
	},
	"bus": {
		CmdOpenI2C, CmdCloseI2C, CmdI2CWriteQuick, CmdI2CWriteByte, CmdI2CReadByte,
		CmdI2CWriteWord, CmdI2CReadWord, CmdI2CWriteBlock, CmdI2CReadBlock,
		CmdOpenSPI, CmdCloseSPI, CmdSPIXfer, CmdSPIRead, CmdSPIWrite,
		CmdOpenSerial, CmdCloseSerial, CmdSerialRead, CmdSerialWrite,
	},
	"file": {CmdOpenFile, CmdCloseFile, CmdFileRead, CmdFileWrite, CmdFileSeek, CmdFileGlob},
	"script": {
		CmdScriptStore, CmdScriptRun, CmdScriptStop, CmdScriptStatus,
		CmdScriptUpdate, CmdScriptDelete,
	},
	"notify": {CmdNotifyOpen, CmdNotifyPause, CmdNotifyResume, CmdNotifyClose},
	"identity": {
		CmdSetUser, CmdSetShareID, CmdUseShareID, CmdGetSBCName, CmdRGPIOVersion,
	},
	"shell": {CmdShellExec},
}
