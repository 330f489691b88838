package bot

import "context"

// Flows.
const (
	flowLost      = "lost"
	flowFound     = "found"
	flowOwner     = "owner"
	flowVolunteer = "volunteer"
	flowMy        = "my"
	flowMenu      = "menu"
)

// Steps. A user is always parked at exactly one of these.
const (
	StepIdle = "idle"

	stepLostCategory   = "lost_category"
	stepLostAttributes = "lost_attributes"
	stepLostPhoto      = "lost_photo"
	stepLostLocation   = "lost_location"
	stepLostSecrets    = "lost_secrets"
	stepLostConfirm    = "lost_confirm"

	stepFoundCategory   = "found_category"
	stepFoundAttributes = "found_attributes"
	stepFoundPhoto      = "found_photo"
	stepFoundLocation   = "found_location"
	stepFoundSecrets    = "found_secrets"
	stepFoundConfirm    = "found_confirm"

	stepOwnerCheckIntro    = "owner_check_intro"
	stepOwnerCheckQuestion = "owner_check_question"
	stepOwnerCheckWaiting  = "owner_check_waiting"

	stepVolunteerIntro    = "volunteer_intro"
	stepVolunteerLocation = "volunteer_location"
	stepVolunteerList     = "volunteer_list"

	stepMyList            = "my_list"
	stepMyEditMenu        = "my_edit_menu"
	stepMyEditTitle       = "my_edit_title"
	stepMyEditDescription = "my_edit_description"
	stepMyEditCategory    = "my_edit_category"
	stepMyEditOccurred    = "my_edit_occurred"
	stepMyEditLocation    = "my_edit_location"
	stepMyEditPhotos      = "my_edit_photos"
)

// flowSteps names the wizard steps of the two intake flows.
type intakeSteps struct {
	category   string
	attributes string
	photo      string
	location   string
	secrets    string
	confirm    string
}

var intakeStepsByFlow = map[string]intakeSteps{
	flowLost: {
		category:   stepLostCategory,
		attributes: stepLostAttributes,
		photo:      stepLostPhoto,
		location:   stepLostLocation,
		secrets:    stepLostSecrets,
		confirm:    stepLostConfirm,
	},
	flowFound: {
		category:   stepFoundCategory,
		attributes: stepFoundAttributes,
		photo:      stepFoundPhoto,
		location:   stepFoundLocation,
		secrets:    stepFoundSecrets,
		confirm:    stepFoundConfirm,
	},
}

// flowStartStep is where each flow begins.
var flowStartStep = map[string]string{
	flowLost:      stepLostCategory,
	flowFound:     stepFoundCategory,
	flowOwner:     stepOwnerCheckIntro,
	flowVolunteer: stepVolunteerIntro,
	flowMy:        stepMyList,
}

// flowStepSequence orders the steps /back walks through.
var flowStepSequence = map[string][]string{
	flowLost: {
		stepLostCategory, stepLostAttributes, stepLostPhoto,
		stepLostLocation, stepLostSecrets, stepLostConfirm,
	},
	flowFound: {
		stepFoundCategory, stepFoundAttributes, stepFoundPhoto,
		stepFoundLocation, stepFoundSecrets, stepFoundConfirm,
	},
	flowOwner: {
		stepOwnerCheckIntro, stepOwnerCheckQuestion, stepOwnerCheckWaiting,
	},
	flowVolunteer: {
		stepVolunteerIntro, stepVolunteerLocation, stepVolunteerList,
	},
}

var stepFlow = buildStepFlow()

func buildStepFlow() map[string]string {
	out := map[string]string{}
	for flow, sequence := range flowStepSequence {
		for _, step := range sequence {
			out[step] = flow
		}
	}
	for _, step := range []string{
		stepMyList, stepMyEditMenu, stepMyEditTitle, stepMyEditDescription,
		stepMyEditCategory, stepMyEditOccurred, stepMyEditLocation, stepMyEditPhotos,
	} {
		out[step] = flowMy
	}
	return out
}

func previousStep(flow, current string) string {
	sequence, ok := flowStepSequence[flow]
	if !ok {
		return ""
	}
	for i, step := range sequence {
		if step == current && i > 0 {
			return sequence[i-1]
		}
	}
	return ""
}

func isAttributesStep(step string) bool {
	return step == stepLostAttributes || step == stepFoundAttributes
}

// Step is a parked conversation state. Enter renders the step's prompt.
// Steps that accept free text additionally implement MessageStep, steps
// that accept button presses implement CallbackStep.
type Step interface {
	Enter(ctx context.Context, c *Ctx, rt *Runtime) error
}

// MessageStep consumes a user text or attachment message.
type MessageStep interface {
	Step
	OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error
}

// CallbackStep consumes a parsed inline button press.
type CallbackStep interface {
	Step
	OnCallback(ctx context.Context, c *Ctx, rt *Runtime, act Action) error
}
