package imagegen

// DemoExample pairs a sample input with a prompt and model,
// ready to run without any user input.
type DemoExample struct {
	// Sample is the sample image name ("landscape", "portrait", "abstract").
	Sample string `json:"sample"`

	// Prompt drives the transformation.
	Prompt string `json:"prompt"`

	// Model is the catalog name to run the example with.
	Model string `json:"model"`

	// Style labels the example in output filenames.
	Style string `json:"style"`
}

// DemoExamples is the fixed set used by demo mode and the demo page.
// Each sample image is paired with prompts that show off a different
// model and style.
var DemoExamples = []DemoExample{
	{
		Sample: "landscape",
		Prompt: "a vibrant van gogh style painting with swirling brushstrokes",
		Model:  "stable-diffusion",
		Style:  "van-gogh",
	},
	{
		Sample: "landscape",
		Prompt: "a serene japanese watercolor landscape, soft ink washes",
		Model:  "stable-diffusion-xl",
		Style:  "watercolor",
	},
	{
		Sample: "portrait",
		Prompt: "make it an oil painting in the style of rembrandt",
		Model:  "instruct-pix2pix",
		Style:  "rembrandt",
	},
	{
		Sample: "portrait",
		Prompt: "a detailed pencil sketch portrait, fine crosshatching",
		Model:  "stable-diffusion",
		Style:  "pencil-sketch",
	},
	{
		Sample: "abstract",
		Prompt: "a futuristic cyberpunk cityscape, neon lights, rain",
		Model:  "stable-diffusion-xl",
		Style:  "cyberpunk",
	},
	{
		Sample: "abstract",
		Prompt: "turn it into stained glass",
		Model:  "instruct-pix2pix",
		Style:  "stained-glass",
	},
}
