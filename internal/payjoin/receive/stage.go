package receive

// Stage orders the receiver-side checks an incoming proposal passes through.
type Stage uint8

const (
	StageUnchecked Stage = iota
	StageBroadcastChecked
	StageInputsNotOwnedChecked
	StageUniformScriptsChecked
	StageInputsUnseenChecked
	StageOutputsIdentified
	StageProvisional
	StageFinalized
)

var stageNames = [...]string{
	StageUnchecked:             "unchecked",
	StageBroadcastChecked:      "broadcast_checked",
	StageInputsNotOwnedChecked: "inputs_not_owned_checked",
	StageUniformScriptsChecked: "uniform_scripts_checked",
	StageInputsUnseenChecked:   "inputs_unseen_checked",
	StageOutputsIdentified:     "outputs_identified",
	StageProvisional:           "provisional",
	StageFinalized:             "finalized",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}
