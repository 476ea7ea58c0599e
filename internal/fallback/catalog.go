package fallback

import "github.com/kalambet/cropdoc/internal/analysis"

type condition struct {
	name            string
	confidence      int
	description     string
	recommendations []string
	treatment       []string
	severity        string
	yieldImpact     string
	spreadRisk      string
	recoveryChance  string
}

type crop struct {
	name string
	// conditions are ordered: spot-like first, discoloration-like second,
	// complex third.
	conditions []condition
}

var healthy = condition{
	name:            "Healthy",
	confidence:      55,
	description:     "No obvious signs of disease were detected.",
	recommendations: []string{"Keep monitoring leaves weekly", "Maintain balanced fertilisation and irrigation"},
	treatment:       []string{},
	severity:        analysis.SeverityMild,
	yieldImpact:     "None expected",
	spreadRisk:      analysis.LevelLow,
	recoveryChance:  analysis.LevelHigh,
}

var catalog = []crop{
	{
		name: "Tomato",
		conditions: []condition{
			{
				name:            "Septoria Leaf Spot",
				confidence:      58,
				description:     "Small circular spots with dark margins and grey centres on lower leaves.",
				recommendations: []string{"Remove and destroy infected lower leaves", "Avoid overhead irrigation", "Rotate away from tomatoes for two seasons"},
				treatment:       []string{"Apply chlorothalonil or copper fungicide every 7-10 days"},
				severity:        analysis.SeverityModerate,
				yieldImpact:     "10-30% loss if defoliation spreads",
				spreadRisk:      analysis.LevelMedium,
				recoveryChance:  analysis.LevelHigh,
			},
			{
				name:            "Early Blight",
				confidence:      60,
				description:     "Yellowing leaves with brown concentric-ring lesions, starting on older foliage.",
				recommendations: []string{"Mulch to stop soil splash", "Stake plants to improve airflow"},
				treatment:       []string{"Apply mancozeb or copper fungicide", "Remove affected leaves"},
				severity:        analysis.SeverityModerate,
				yieldImpact:     "20-30% loss in untreated fields",
				spreadRisk:      analysis.LevelMedium,
				recoveryChance:  analysis.LevelMedium,
			},
			{
				name:            "Late Blight",
				confidence:      52,
				description:     "Water-soaked patches turning brown-black with pale mould under humid conditions.",
				recommendations: []string{"Isolate and remove infected plants immediately", "Do not compost infected material"},
				treatment:       []string{"Apply metalaxyl-based systemic fungicide", "Follow with protectant copper sprays"},
				severity:        analysis.SeveritySevere,
				yieldImpact:     "Up to total crop loss",
				spreadRisk:      analysis.LevelHigh,
				recoveryChance:  analysis.LevelLow,
			},
		},
	},
	{
		name: "Maize",
		conditions: []condition{
			{
				name:            "Gray Leaf Spot",
				confidence:      57,
				description:     "Rectangular grey-tan lesions running parallel to leaf veins.",
				recommendations: []string{"Plant tolerant hybrids", "Bury crop residue after harvest"},
				treatment:       []string{"Apply a strobilurin fungicide at tasseling if lesions reach the ear leaf"},
				severity:        analysis.SeverityModerate,
				yieldImpact:     "10-20% loss",
				spreadRisk:      analysis.LevelMedium,
				recoveryChance:  analysis.LevelMedium,
			},
			{
				name:            "Common Rust",
				confidence:      59,
				description:     "Cinnamon-brown pustules scattered on both leaf surfaces.",
				recommendations: []string{"Scout fields weekly in cool, humid weather"},
				treatment:       []string{"Apply triazole fungicide if pustules cover the upper leaves early"},
				severity:        analysis.SeverityMild,
				yieldImpact:     "Usually under 10% loss",
				spreadRisk:      analysis.LevelHigh,
				recoveryChance:  analysis.LevelHigh,
			},
			{
				name:            "Northern Corn Leaf Blight",
				confidence:      53,
				description:     "Long cigar-shaped grey-green lesions that merge and blight whole leaves.",
				recommendations: []string{"Rotate with legumes", "Choose resistant varieties next season"},
				treatment:       []string{"Apply fungicide at first lesion on the third leaf below the ear"},
				severity:        analysis.SeveritySevere,
				yieldImpact:     "Up to 50% loss",
				spreadRisk:      analysis.LevelHigh,
				recoveryChance:  analysis.LevelMedium,
			},
		},
	},
	{
		name: "Potato",
		conditions: []condition{
			{
				name:            "Black Scurf",
				confidence:      54,
				description:     "Dark sunken spots on stems near the soil line.",
				recommendations: []string{"Use certified seed tubers", "Plant into warm soil"},
				treatment:       []string{"Treat seed with a fludioxonil dressing"},
				severity:        analysis.SeverityMild,
				yieldImpact:     "Minor yield loss, reduced tuber quality",
				spreadRisk:      analysis.LevelLow,
				recoveryChance:  analysis.LevelHigh,
			},
			{
				name:            "Early Blight",
				confidence:      58,
				description:     "Dark target-like lesions surrounded by yellow halos on older leaves.",
				recommendations: []string{"Keep plants well fed with nitrogen", "Remove volunteer potatoes"},
				treatment:       []string{"Apply mancozeb or chlorothalonil"},
				severity:        analysis.SeverityModerate,
				yieldImpact:     "15-30% loss",
				spreadRisk:      analysis.LevelMedium,
				recoveryChance:  analysis.LevelMedium,
			},
			{
				name:            "Late Blight",
				confidence:      55,
				description:     "Rapidly expanding dark lesions with white sporulation on leaf undersides.",
				recommendations: []string{"Destroy infected haulms before harvest", "Harvest only in dry weather"},
				treatment:       []string{"Apply cymoxanil plus mancozeb", "Repeat every 5-7 days during wet spells"},
				severity:        analysis.SeveritySevere,
				yieldImpact:     "Up to total crop loss",
				spreadRisk:      analysis.LevelHigh,
				recoveryChance:  analysis.LevelLow,
			},
		},
	},
	{
		name: "Wheat",
		conditions: []condition{
			{
				name:            "Septoria Tritici Blotch",
				confidence:      56,
				description:     "Tan blotches speckled with black fruiting bodies on lower leaves.",
				recommendations: []string{"Delay sowing to reduce autumn infection", "Use resistant varieties"},
				treatment:       []string{"Apply azole plus SDHI fungicide at flag leaf emergence"},
				severity:        analysis.SeverityModerate,
				yieldImpact:     "10-40% loss",
				spreadRisk:      analysis.LevelMedium,
				recoveryChance:  analysis.LevelMedium,
			},
			{
				name:            "Leaf Rust",
				confidence:      60,
				description:     "Orange-brown pustules mainly on upper leaf surfaces.",
				recommendations: []string{"Remove volunteer wheat", "Monitor during warm, humid nights"},
				treatment:       []string{"Apply tebuconazole at first signs of pustules"},
				severity:        analysis.SeverityModerate,
				yieldImpact:     "5-20% loss",
				spreadRisk:      analysis.LevelHigh,
				recoveryChance:  analysis.LevelHigh,
			},
			{
				name:            "Powdery Mildew",
				confidence:      52,
				description:     "White powdery colonies on leaves and stems that turn grey with age.",
				recommendations: []string{"Avoid excess nitrogen", "Improve canopy airflow"},
				treatment:       []string{"Apply sulphur or a triazole fungicide"},
				severity:        analysis.SeverityMild,
				yieldImpact:     "5-15% loss",
				spreadRisk:      analysis.LevelMedium,
				recoveryChance:  analysis.LevelHigh,
			},
		},
	},
	{
		name: "Rice",
		conditions: []condition{
			{
				name:            "Brown Spot",
				confidence:      57,
				description:     "Oval brown spots with grey centres scattered across leaves.",
				recommendations: []string{"Correct potassium and silicon deficiencies", "Use clean seed"},
				treatment:       []string{"Treat seed with a fungicide dressing", "Apply propiconazole if spotting is heavy"},
				severity:        analysis.SeverityMild,
				yieldImpact:     "5-15% loss",
				spreadRisk:      analysis.LevelMedium,
				recoveryChance:  analysis.LevelHigh,
			},
			{
				name:            "Bacterial Leaf Blight",
				confidence:      54,
				description:     "Yellow to straw-coloured stripes spreading from leaf tips and margins.",
				recommendations: []string{"Drain fields periodically", "Avoid excess nitrogen"},
				treatment:       []string{"Apply copper-based bactericide", "Plant resistant varieties next season"},
				severity:        analysis.SeverityModerate,
				yieldImpact:     "20-30% loss",
				spreadRisk:      analysis.LevelHigh,
				recoveryChance:  analysis.LevelMedium,
			},
			{
				name:            "Rice Blast",
				confidence:      53,
				description:     "Diamond-shaped lesions with grey centres on leaves, nodes and panicle necks.",
				recommendations: []string{"Split nitrogen applications", "Keep fields flooded evenly"},
				treatment:       []string{"Apply tricyclazole at booting and heading"},
				severity:        analysis.SeveritySevere,
				yieldImpact:     "Up to 50% loss",
				spreadRisk:      analysis.LevelHigh,
				recoveryChance:  analysis.LevelLow,
			},
		},
	},
	{
		name: "Cassava",
		conditions: []condition{
			{
				name:            "Cassava Bacterial Blight",
				confidence:      55,
				description:     "Angular water-soaked spots that dry out and cause leaf wilting.",
				recommendations: []string{"Use disease-free cuttings", "Prune and burn infected shoots"},
				treatment:       []string{"Remove infected plants", "Disinfect cutting tools between plants"},
				severity:        analysis.SeverityModerate,
				yieldImpact:     "20-40% loss",
				spreadRisk:      analysis.LevelMedium,
				recoveryChance:  analysis.LevelMedium,
			},
			{
				name:            "Cassava Mosaic Disease",
				confidence:      59,
				description:     "Yellow-green mosaic patterns with distorted, curled leaves.",
				recommendations: []string{"Plant tolerant varieties", "Control whitefly populations"},
				treatment:       []string{"Rogue infected plants early", "Apply neem-based spray against whiteflies"},
				severity:        analysis.SeverityModerate,
				yieldImpact:     "30-40% loss",
				spreadRisk:      analysis.LevelHigh,
				recoveryChance:  analysis.LevelLow,
			},
			{
				name:            "Cassava Brown Streak",
				confidence:      51,
				description:     "Feathery yellow chlorosis along veins with brown streaks on stems.",
				recommendations: []string{"Harvest early to limit root necrosis", "Source cuttings from certified fields"},
				treatment:       []string{"No chemical cure; remove infected plants"},
				severity:        analysis.SeveritySevere,
				yieldImpact:     "Up to 70% marketable root loss",
				spreadRisk:      analysis.LevelHigh,
				recoveryChance:  analysis.LevelLow,
			},
		},
	},
}
