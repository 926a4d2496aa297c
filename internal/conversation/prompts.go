package conversation

import (
	"fmt"

	"github.com/p-blackswan/trio/internal/persona"
	"github.com/p-blackswan/trio/internal/store"
)

const recoverPrompt = "I'm returning to this project. Can you give me a quick summary of where we are " +
	"and what the single most important next action is?"

func projectStartedNote(title string) string {
	return "New project started: " + title
}

func teamOpeningPrompt(message string) string {
	return fmt.Sprintf("In a team discussion, the user asked: %s\n\nProvide your perspective as the %s.",
		message, persona.Spark.Profile().Role)
}

func teamRelayPrompt(message, first string) string {
	return fmt.Sprintf("In a team discussion, the user asked: %s\n\n%s's perspective: %s\n\nProvide your perspective as the %s.",
		message, persona.Spark.Profile().Name, first, persona.Proto.Profile().Role)
}

func sparkIntroPrompt(p *store.Project) string {
	return fmt.Sprintf("A new project has started!\n\nTitle: %s\nDescription: %s\nInitial enthusiasm: %d/10\n\n"+
		"Say hello and help capture the excitement and 'why' behind this project!",
		p.Title, p.Description, p.InitialEnthusiasm)
}

func protoIntroPrompt(p *store.Project) string {
	return fmt.Sprintf("New project initiated:\n\nTitle: %s\nDescription: %s\n\n"+
		"Help break this down into the first tiny actionable steps.",
		p.Title, p.Description)
}

func capturePrompt(content string) string {
	return "Quick capture: " + content
}

func celebrationPrompt(task string, score int) string {
	return fmt.Sprintf("I just completed a task: %s. Dopamine score: %d/10. Celebrate with me!", task, score)
}
