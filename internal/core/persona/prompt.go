package persona

import "fmt"

// Profile carries the registration fields interpolated into the vision
// prompt. DOB is the already-formatted "2006-01-02" string. Empty
// fields render as empty substitutions, not errors.
type Profile struct {
	Name     string
	Username string
	DOB      string
}

// promptTemplate is the fixed instruction sent to the vision model
// together with the uploaded images. The three %s slots are, in order:
// the "Name: <name>" line, and the username/DOB block.
const promptTemplate = `
You are an expert in detecting personality traits and fitness levels. Upon receiving an image of a person, you need to analyze it to classify the individual's fitness level (beginner, intermediate, or expert) for gym membership suitability, along with other insights such as their interests, hobbies, clothing, and personality traits.

It is impossible to determine fitness level, BMI, personality traits, interests, or hobbies from a single image. However, based on the person's appearance, you will make educated guesses, and for further analysis, we ask for the user's weight and height to calculate BMI and refine the suggestions.

However, I need more information about the person in the image to provide accurate insights. Could you please provide the following details:

Name of the person
Gender (if identifiable)
Age group
Additional information related to their fitness journey and interests

Name: %s
Gender: [Gender]
Age: [Age]
Additional Information: %s
Fitness Information:

Fitness Level: [Beginner/Intermediate/Expert based on the analysis of the image and BMI]
Fitness Goals: [Fitness Goals]
Current Fitness Level: [Fitness Level]
Exercise Preferences: [Exercise Preferences]
Dietary Preferences: [Dietary Preferences]
Health Conditions/Limitations: [Health Conditions/Limitations]
`

// BuildPrompt renders the persona/fitness assessment prompt for a
// profile. Pure string formatting: identical input yields identical
// output.
func BuildPrompt(p Profile) string {
	nameLine := fmt.Sprintf("Name: %s", p.Name)
	additionalInfo := fmt.Sprintf("Username: %s\nDOB: %s\n", p.Username, p.DOB)
	return fmt.Sprintf(promptTemplate, nameLine, additionalInfo)
}
