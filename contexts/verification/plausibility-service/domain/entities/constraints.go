package entities

// Constraint captures the physical and contextual plausibility window for
// one action category, grounded in field data from relief operations.
//
// CriticalKeywords semantics: nil means CRITICAL urgency is always
// admissible for the category; an empty slice means CRITICAL is banned;
// otherwise at least one keyword must appear in the description.
type Constraint struct {
	MaxPeoplePerHour int
	MaxEffortHours   float64
	MaxPeopleAbs     int
	UrgencyAllowed   []string
	RequireKeywords  []string
	CriticalKeywords []string
	TypicalPeopleMin int
}

// ActionConstraints is the per-category plausibility matrix.
var ActionConstraints = map[string]Constraint{
	"FOOD_DISTRIBUTION": {
		MaxPeoplePerHour: 80,
		MaxEffortHours:   16,
		MaxPeopleAbs:     1000,
		UrgencyAllowed:   []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"},
		RequireKeywords: []string{
			"makan", "food", "distribusi", "bagi", "nasi", "sembako", "makanan",
			"meal", "rice", "ration", "package", "paket", "logistik", "pangan",
			"dapur", "kitchen", "hunger", "lapar", "nutrisi", "nutrition",
		},
		CriticalKeywords: []string{
			"bencana", "disaster", "darurat", "emergency", "pengungsi", "refugee",
			"banjir", "flood", "gempa", "earthquake", "crisis", "krisis",
		},
		TypicalPeopleMin: 5,
	},
	"MEDICAL_AID": {
		MaxPeoplePerHour: 12,
		MaxEffortHours:   24,
		MaxPeopleAbs:     200,
		UrgencyAllowed:   []string{"MEDIUM", "HIGH", "CRITICAL"},
		RequireKeywords: []string{
			"medis", "medical", "obat", "medicine", "sakit", "sick", "luka", "wound",
			"dokter", "doctor", "nurse", "perawat", "health", "kesehatan", "clinic",
			"klinik", "patient", "pasien", "injury", "cedera", "treatment", "pengobatan",
			"first aid", "p3k", "ambulan", "ambulance", "hospital", "rumah sakit",
		},
		CriticalKeywords: nil, // CRITICAL always admissible for medical work
		TypicalPeopleMin: 1,
	},
	"SHELTER_CONSTRUCTION": {
		MaxPeoplePerHour: 5,
		MaxEffortHours:   72,
		MaxPeopleAbs:     100,
		UrgencyAllowed:   []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"},
		RequireKeywords: []string{
			"shelter", "rumah", "house", "bangunan", "building", "tenda", "tent",
			"konstruksi", "construction", "bangun", "build", "atap", "roof",
			"tempat tinggal", "hunian", "terpal", "tarpaulin", "fondasi", "foundation",
			"renovasi", "renovation", "perbaikan", "repair",
		},
		CriticalKeywords: []string{
			"bencana", "disaster", "darurat", "emergency", "pengungsi",
		},
		TypicalPeopleMin: 1,
	},
	"EDUCATION_SESSION": {
		MaxPeoplePerHour: 100,
		MaxEffortHours:   10,
		MaxPeopleAbs:     300,
		UrgencyAllowed:   []string{"LOW", "MEDIUM", "HIGH"},
		RequireKeywords: []string{
			"belajar", "learn", "mengajar", "teach", "sekolah", "school", "kelas", "class",
			"edukasi", "education", "siswa", "student", "murid", "pelatihan", "training",
			"workshop", "seminar", "literacy", "literasi", "book", "buku", "skill",
			"keterampilan", "tutoring", "les", "mengaji", "reading",
		},
		CriticalKeywords: []string{}, // teaching is effectively never a CRITICAL emergency
		TypicalPeopleMin: 2,
	},
	"DISASTER_RELIEF": {
		MaxPeoplePerHour: 50,
		MaxEffortHours:   72,
		MaxPeopleAbs:     2000,
		UrgencyAllowed:   []string{"HIGH", "CRITICAL"},
		RequireKeywords: []string{
			"bencana", "disaster", "gempa", "earthquake", "banjir", "flood",
			"tsunami", "kebakaran", "fire", "longsor", "landslide", "evakuasi",
			"evacuation", "darurat", "emergency", "korban", "victim", "rescue",
			"penyelamatan", "bantuan darurat", "relief", "tanggap darurat",
		},
		CriticalKeywords: nil,
		TypicalPeopleMin: 5,
	},
	"CLEAN_WATER_PROJECT": {
		MaxPeoplePerHour: 30,
		MaxEffortHours:   48,
		MaxPeopleAbs:     500,
		UrgencyAllowed:   []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"},
		RequireKeywords: []string{
			"air", "water", "sumur", "well", "sanitasi", "sanitation", "bersih", "clean",
			"minum", "drinking", "filter", "pompa", "pump", "sumber air", "water source",
			"irigasi", "irrigation", "toilet", "mck", "hygiene", "kebersihan",
		},
		CriticalKeywords: []string{
			"kekeringan", "drought", "darurat", "emergency", "kontaminasi", "contamination",
		},
		TypicalPeopleMin: 5,
	},
	"MENTAL_HEALTH_SUPPORT": {
		MaxPeoplePerHour: 8,
		MaxEffortHours:   12,
		MaxPeopleAbs:     50,
		UrgencyAllowed:   []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"},
		RequireKeywords: []string{
			"mental", "psikologi", "psychology", "trauma", "counseling", "konseling",
			"stress", "anxiety", "depresi", "depression", "emotion", "emosi",
			"jiwa", "wellbeing", "kesehatan mental", "support group", "therapy",
			"terapi", "healing", "pemulihan", "grief", "dukacita",
		},
		CriticalKeywords: []string{
			"trauma", "bencana", "disaster", "krisis", "crisis", "suicide", "bunuh diri",
		},
		TypicalPeopleMin: 1,
	},
	"ENVIRONMENTAL_ACTION": {
		MaxPeoplePerHour: 40,
		MaxEffortHours:   16,
		MaxPeopleAbs:     1000,
		UrgencyAllowed:   []string{"LOW", "MEDIUM", "HIGH"},
		RequireKeywords: []string{
			"lingkungan", "environment", "sampah", "trash", "garbage", "plastic",
			"plastik", "bersih", "clean", "tanam", "plant", "pohon", "tree",
			"recycle", "daur ulang", "polusi", "pollution", "pantai", "beach",
			"sungai", "river", "hutan", "forest", "mangrove", "solar", "energi",
		},
		CriticalKeywords: []string{
			"kebakaran hutan", "forest fire", "tumpahan minyak", "oil spill",
			"bencana lingkungan", "environmental disaster", "toxic", "beracun",
		},
		TypicalPeopleMin: 1,
	},
}

// ImpossibleRatios: people-per-hour throughput beyond which the claim is
// physically impossible for one volunteer.
var ImpossibleRatios = map[string]float64{
	"FOOD_DISTRIBUTION":     120.0,
	"MEDICAL_AID":           20.0,
	"SHELTER_CONSTRUCTION":  8.0,
	"EDUCATION_SESSION":     150.0,
	"DISASTER_RELIEF":       80.0,
	"CLEAN_WATER_PROJECT":   50.0,
	"MENTAL_HEALTH_SUPPORT": 12.0,
	"ENVIRONMENTAL_ACTION":  60.0,
}

// CrossActionSignatures are phrases so specific to a category that their
// presence under a different claimed category signals a mislabeled action.
var CrossActionSignatures = map[string][]string{
	"ENVIRONMENTAL_ACTION": {"pungut sampah", "bersih pantai", "tanam pohon", "recycle", "daur ulang"},
	"FOOD_DISTRIBUTION":    {"distribusi makanan", "bagi nasi", "dapur umum", "sembako"},
	"EDUCATION_SESSION":    {"mengajar", "belajar", "kelas", "sekolah", "workshop", "pelatihan"},
	"MEDICAL_AID":          {"obati", "rawat pasien", "periksa kesehatan", "first aid"},
	"SHELTER_CONSTRUCTION": {"bangun rumah", "renovasi", "pasang tenda", "perbaikan rumah"},
}

// SuspiciousObjects flags detector classes implausible for the category's
// claimed scene.
var SuspiciousObjects = map[string][]string{
	"DISASTER_RELIEF":   {"tv", "monitor", "laptop", "couch", "bed"},
	"FOOD_DISTRIBUTION": {"car", "motorcycle"},
}

// PersonRequiredActions must show at least one detected person when image
// evidence carries detector output.
var PersonRequiredActions = map[string]bool{
	"FOOD_DISTRIBUTION": true,
	"MEDICAL_AID":       true,
	"EDUCATION_SESSION": true,
	"DISASTER_RELIEF":   true,
}
