package moderation

import "regexp"

/*
========================
 Tablas de indicadores
========================

Las tablas son exportadas a propósito: las necesitan los tests, la
herramienta route_check y el registro de auditoría. El orden dentro de
cada tabla es estable para que los indicadores emitidos sean
deterministas.
*/

// MinorStrongIndicators son términos sexualizados de menores por sí
// mismos: disparan MINOR_RISK sin requerir contexto adicional.
var MinorStrongIndicators = []string{
	"loli",
	"shota",
	"jailbait",
	"jail bait",
}

// MinorIndicators marca referencias a menores de edad. Solo dispara el
// rechazo duro cuando co-ocurre con contexto sexual o de roleplay.
var MinorIndicators = []string{
	"minor",
	"underage",
	"under age",
	"teen",
	"teens",
	"teenager",
	"high school",
	"middle school",
	"schoolgirl",
	"schoolboy",
	"preteen",
	"little girl",
	"little boy",
	"child",
	"children",
	"thirteen years old",
	"fourteen years old",
	"fifteen years old",
	"sixteen years old",
	"seventeen years old",
}

// MinorAgePattern detecta edades numéricas por debajo de 18.
var MinorAgePattern = regexp.MustCompile(`\b(?:[0-9]|1[0-7])\s*(?:yo|y/o|yr old|yrs old|year old|years old)\b`)

// MinorSelfPattern detecta declaraciones de edad en primera o tercera persona.
// Se aplica vía minorSelfAge, que descarta medidas ("i'm 6 feet tall").
var MinorSelfPattern = regexp.MustCompile(`\b(?:i'?m|i am|she'?s|she is|he'?s|he is)\s+(?:[0-9]|1[0-7])\b`)

// minorSelfExclusions son unidades que siguen a un número sin ser una edad.
var minorSelfExclusions = []string{
	"feet", "foot", "ft", "inches", "inch", "cm", "meters", "metres",
	"kg", "pounds", "lbs", "percent", "%", "hours", "minutes", "days",
	"weeks", "months", "dollars", "bucks", "euros",
}

// NonConsentIndicators requieren contexto sexual para disparar.
var NonConsentIndicators = []string{
	"without consent",
	"without her consent",
	"without his consent",
	"against her will",
	"against his will",
	"against their will",
	"doesn't consent",
	"does not consent",
	"forced",
	"force her",
	"force him",
	"forcing",
	"drugged",
	"unconscious",
	"while she sleeps",
	"while he sleeps",
	"can't say no",
	"ignores her no",
	"ignore her no",
	"held down",
	"coerce",
	"coercion",
	"blackmail into",
}

// StrongNonConsentIndicators implican contexto sexual por sí mismos.
var StrongNonConsentIndicators = []string{
	"rape",
	"rapes",
	"raped",
	"raping",
	"molest",
	"molests",
	"molested",
	"molesting",
	"non-consensual",
	"nonconsensual",
	"non consensual",
	"sexual assault",
}

// SexualContextIndicators establecen contexto sexual sin ser actos en sí.
var SexualContextIndicators = []string{
	"sex",
	"sexual",
	"sexually",
	"nude",
	"naked",
	"erotic",
	"erotica",
	"horny",
	"aroused",
	"arousal",
	"make love",
	"sleep with",
	"hook up",
	"lingerie",
	"strip for",
	"undress",
	"adults only",
}

// RoleplayIndicators cuentan como contexto para la regla de menores:
// pedir adoptar una identidad es el vector típico de abuso del gate.
var RoleplayIndicators = []string{
	"roleplay",
	"role play",
	"role-play",
	"pretend to be",
	"pretend you are",
	"act as",
	"act like",
	"you are now",
	"pose as",
}

// ExplicitActIndicators son actos sexuales explícitos.
var ExplicitActIndicators = []string{
	"fuck",
	"fucking",
	"blowjob",
	"handjob",
	"anal",
	"cum",
	"cumming",
	"orgasm",
	"penetrat",
	"masturbat",
	"oral sex",
	"threesome",
	"ride you",
	"ride me",
	"inside me",
	"inside you",
	"thrust",
	"moaning",
	"have sex",
}

// AnatomicalIndicators son términos anatómicos; en contexto clínico se
// suprimen (educación/salud no es contenido explícito).
var AnatomicalIndicators = []string{
	"penis",
	"vagina",
	"breast",
	"nipple",
	"clitoris",
	"clit",
	"cock",
	"dick",
	"pussy",
	"tits",
	"genitals",
	"testicles",
	"scrotum",
	"vulva",
	"cervix",
	"anus",
}

// FetishIndicators disparan la etiqueta de fetiche.
var FetishIndicators = []string{
	"bdsm",
	"bondage",
	"dominatrix",
	"submissive",
	"femdom",
	"latex suit",
	"foot fetish",
	"feet fetish",
	"spanking",
	"spank me",
	"flogging",
	"whip me",
	"tie me up",
	"tied up",
	"handcuff",
	"collar and leash",
	"petplay",
	"pet play",
	"degradation kink",
	"humiliation kink",
	"choking kink",
	"wax play",
	"rope play",
	"shibari",
	"sensory deprivation",
	"master and slave",
}

// ClinicalIndicators suprimen lo anatómico cuando no hay actos explícitos.
var ClinicalIndicators = []string{
	"doctor",
	"physician",
	"medical",
	"medically",
	"medicine",
	"anatomy",
	"biology",
	"health class",
	"symptom",
	"symptoms",
	"diagnosis",
	"diagnosed",
	"clinic",
	"clinical",
	"gynecologist",
	"urologist",
	"examination",
	"screening",
	"cancer",
	"infection",
	"contraception",
	"pregnancy",
	"puberty",
	"textbook",
}

// SuggestiveIndicators cubren flirteo e insinuación.
var SuggestiveIndicators = []string{
	"flirt",
	"flirting",
	"kiss",
	"kissing",
	"make out",
	"making out",
	"cuddle",
	"cuddling",
	"snuggle",
	"romantic",
	"romance",
	"date night",
	"candlelight",
	"sexy",
	"seductive",
	"seduce",
	"tease",
	"teasing",
	"crush on you",
	"hold me close",
	"caress",
	"whisper in my ear",
	"bite my lip",
	"wink",
	"smirk",
	"hot face",
	"eggplant",
	"peach",
	"splash",
}

// ContinuationIndicators son señales débiles de continuidad: solo pesan
// cuando la ruta previa ya era explícita y el mensaje es corto.
var ContinuationIndicators = []string{
	"more",
	"keep going",
	"don't stop",
	"dont stop",
	"continue",
	"go on",
	"yes please",
	"harder",
	"again",
}
