package algomorph

import "github.com/xandramax/Volume1-sub000/algorithm"

// EditState is the configuration state visible on the panel.
type EditState int

const (
	Idle EditState = iota
	EditingScene
	EditingOperator
)

func (s EditState) String() string {
	switch s {
	case EditingScene:
		return "editing_scene"
	case EditingOperator:
		return "editing_operator"
	default:
		return "idle"
	}
}

// SceneLocator reports the scene closest to the current morph position.
type SceneLocator interface {
	NearestScene() int
}

// EditSession turns panel gestures into scene edits. Every mutation is
// recorded in the history.
type EditSession struct {
	bank    *algorithm.Bank
	history *History
	locator SceneLocator
	params  *Params

	configMode bool
	configOp   int
	editScene  int
}

// NewEditSession returns an idle session editing bank. locator supplies the
// scene shown while not editing.
func NewEditSession(bank *algorithm.Bank, history *History, locator SceneLocator, params *Params) *EditSession {
	return &EditSession{
		bank:     bank,
		history:  history,
		locator:  locator,
		params:   params,
		configOp: -1,
	}
}

// State reports the session's edit state.
func (s *EditSession) State() EditState {
	switch {
	case !s.configMode:
		return Idle
	case s.configOp < 0:
		return EditingScene
	default:
		return EditingOperator
	}
}

func (s *EditSession) ConfigMode() bool { return s.configMode }
func (s *EditSession) ConfigOp() int    { return s.configOp }
func (s *EditSession) EditScene() int   { return s.editScene }

func (s *EditSession) enter() {
	s.configMode = true
	s.configOp = -1
	s.editScene = s.locator.NearestScene()
}

func (s *EditSession) exit() {
	s.configMode = false
	s.configOp = -1
}

// PressEdit toggles editing. Entering selects the scene nearest the morph.
func (s *EditSession) PressEdit() {
	if s.configMode {
		s.exit()
		return
	}
	s.enter()
}

// PressOperator selects op for editing, or deselects it when already selected.
func (s *EditSession) PressOperator(op int) {
	if op < 0 || op >= algorithm.NumOperators {
		return
	}
	if !s.configMode {
		s.enter()
	}
	if s.configOp == op {
		s.configOp = -1
		return
	}
	s.configOp = op
}

// PressModulator toggles a route on the edit scene. With an operator selected
// it toggles the horizontal route (mod == selected) or the diagonal route to
// mod; with none selected it toggles mod's forced-carrier flag.
func (s *EditSession) PressModulator(mod int) {
	if mod < 0 || mod >= algorithm.NumOperators {
		return
	}
	if !s.configMode {
		s.enter()
	}

	e := Edit{Scene: s.editScene, Op: s.configOp}
	switch {
	case s.configOp < 0:
		e.Kind = EditForcedCarrier
		e.Op = mod
	case mod == s.configOp:
		e.Kind = EditHorizontal
	default:
		e.Kind = EditDiagonal
		e.RelMod = algorithm.FourToThree[s.configOp][mod]
	}
	e.apply(s.bank, false)
	s.history.Push(e)

	if s.configOp >= 0 && s.params.ExitOnConnect {
		s.exit()
	}
}

// SelectEditScene changes the scene being edited. It is ignored when idle.
func (s *EditSession) SelectEditScene(scene int) {
	if !s.configMode || scene < 0 || scene >= algorithm.NumScenes {
		return
	}
	s.editScene = scene
}

// Restore sets the session state directly, as when loading a preset.
func (s *EditSession) Restore(configMode bool, editScene int) {
	s.configMode = configMode
	s.configOp = -1
	if editScene >= 0 && editScene < algorithm.NumScenes {
		s.editScene = editScene
	} else {
		s.editScene = 0
	}
}
