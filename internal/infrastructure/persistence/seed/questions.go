// Package seed holds the starter quiz question bank loaded into empty stores.
package seed

import "github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/scoring"

func q(id int64, text string, options [4]string, correct int, fact, difficulty string) scoring.Question {
	return scoring.Question{ID: id, Text: text, Options: options, CorrectOption: correct, Fact: fact, Difficulty: difficulty}
}

// Questions is the starter bank. CorrectOption is a zero-based index.
var Questions = []scoring.Question{
	q(1, "What is global warming?",
		[4]string{"Cooling of Earth", "Increase in Earth's temperature", "Heavy rainfall", "More snow"},
		1, "It means Earth's temperature is rising.", "easy"),
	q(2, "Which gas mainly causes global warming?",
		[4]string{"Oxygen", "Nitrogen", "Carbon dioxide", "Hydrogen"},
		2, "CO2 traps heat in the atmosphere.", "easy"),
	q(3, "What does recycling mean?",
		[4]string{"Throwing away waste", "Reusing materials", "Burning waste", "Burying trash"},
		1, "Recycling turns waste into new products.", "easy"),
	q(4, "What is renewable energy?",
		[4]string{"Energy that runs out", "Energy from fossil fuels", "Energy that can be replaced naturally", "Energy from coal"},
		2, "Renewable energy comes from natural sources.", "easy"),
	q(5, "Which of these is biodegradable?",
		[4]string{"Plastic bottle", "Glass jar", "Banana peel", "Metal can"},
		2, "Organic waste breaks down naturally.", "easy"),
	q(6, "What is deforestation?",
		[4]string{"Planting trees", "Cutting down forests", "Watering trees", "Growing crops"},
		1, "Deforestation means removing trees.", "easy"),
	q(7, "Which action saves water?",
		[4]string{"Leaving tap open", "Fixing leaking pipes", "Long showers", "Washing half loads"},
		1, "Fixing leaks prevents water waste.", "easy"),
	q(8, "Which transport is most eco-friendly?",
		[4]string{"Car", "Bus", "Bicycle", "Plane"},
		2, "Bicycles do not use fuel.", "easy"),
	q(9, "What causes ocean pollution?",
		[4]string{"Plastic waste", "Clean water", "Fish", "Sand"},
		0, "Plastic harms marine life.", "easy"),
	q(10, "What happens if glaciers melt?",
		[4]string{"Sea level rises", "Sea dries up", "Earth cools", "More snow"},
		0, "Melting ice increases sea levels.", "easy"),
	q(11, "Which can save electricity?",
		[4]string{"Turning off unused lights", "Leaving TV on", "Running AC all day", "Charging all night"},
		0, "Saving power reduces emissions.", "easy"),
	q(12, "What is composting?",
		[4]string{"Throwing food away", "Turning organic waste into fertilizer", "Burning waste", "Recycling plastics"},
		1, "Composting recycles organic waste naturally.", "easy"),
	q(13, "What does 'sustainable development' mean?",
		[4]string{"Using resources recklessly", "Meeting present needs without harming future generations", "Destroying forests for growth", "Polluting rivers for industries"},
		1, "It balances present needs with future resources.", "medium"),
	q(14, "What is an ecological footprint?",
		[4]string{"The number of trees you plant", "The environmental impact of your activities", "The area you live in", "The number of animals in your area"},
		1, "It measures human impact on the planet.", "medium"),
	q(15, "What is overfishing?",
		[4]string{"Fishing too little", "Catching fish faster than they reproduce", "Planting more fish", "Fishing sustainably"},
		1, "It depletes fish populations faster than they can recover.", "medium"),
	q(16, "What is the urban heat island effect?",
		[4]string{"Cities being cooler than rural areas", "Cities being warmer than surrounding areas", "Rural areas being polluted", "Forests being cleared"},
		1, "Concrete and human activity keep cities warmer.", "medium"),
	q(17, "What is the main cause of ozone layer depletion?",
		[4]string{"CFCs from aerosols", "Wind energy", "Solar panels", "Planting trees"},
		0, "CFCs damage the ozone layer, increasing UV exposure.", "hard"),
	q(18, "Which of these contributes to soil erosion?",
		[4]string{"Planting cover crops", "Deforestation", "Terracing farmland", "Mulching"},
		1, "Removing trees exposes soil to erosion.", "hard"),
	q(19, "Which is an example of sustainable agriculture?",
		[4]string{"Monocropping", "Chemical-intensive farming", "Crop rotation", "Deforestation"},
		2, "Crop rotation maintains soil health and biodiversity.", "medium"),
	q(20, "Which of these is a clean transportation option?",
		[4]string{"Diesel truck", "Electric car", "Petrol motorcycle", "Airplane"},
		1, "Electric vehicles produce less air pollution.", "medium"),
}
