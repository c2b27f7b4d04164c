package model

type LessonKind string

const (
	KindLesson   LessonKind = "lesson"
	KindQuiz     LessonKind = "quiz"
	KindExercise LessonKind = "exercise"
)

// Lesson is one entry of the curriculum. Position orders the catalog and
// breaks ties between review suggestions.
type Lesson struct {
	Slug     string     `gorm:"primaryKey;size:100" json:"id"`
	Module   string     `gorm:"size:100;not null" json:"module"`
	Title    string     `gorm:"size:200;not null" json:"title"`
	Kind     LessonKind `gorm:"size:20;default:'lesson'" json:"kind"`
	Position int        `gorm:"index" json:"position"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// DefaultCurriculum is seeded into an empty lessons table.
func DefaultCurriculum() []Lesson {
	type entry struct {
		slug, module, title string
		kind                LessonKind
	}
	entries := []entry{
		{"introducao", "Fundamentos", "Introdução ao Java", KindLesson},
		{"variaveis", "Fundamentos", "Variáveis e tipos primitivos", KindLesson},
		{"operadores", "Fundamentos", "Operadores", KindLesson},
		{"condicionais", "Fundamentos", "Estruturas condicionais", KindLesson},
		{"lacos", "Fundamentos", "Laços de repetição", KindLesson},
		{"arrays", "Fundamentos", "Arrays", KindExercise},
		{"quiz-fundamentos", "Fundamentos", "Quiz: fundamentos", KindQuiz},
		{"classes", "Orientação a Objetos", "Classes", KindLesson},
		{"objetos", "Orientação a Objetos", "Objetos e referências", KindLesson},
		{"construtores", "Orientação a Objetos", "Construtores", KindLesson},
		{"encapsulamento", "Orientação a Objetos", "Encapsulamento", KindLesson},
		{"heranca", "Orientação a Objetos", "Herança", KindLesson},
		{"polimorfismo", "Orientação a Objetos", "Polimorfismo", KindLesson},
		{"abstracao", "Orientação a Objetos", "Classes abstratas", KindLesson},
		{"interfaces", "Orientação a Objetos", "Interfaces", KindLesson},
		{"quiz-oop", "Orientação a Objetos", "Quiz: orientação a objetos", KindQuiz},
		{"excecoes", "Tópicos avançados", "Tratamento de exceções", KindLesson},
		{"colecoes", "Tópicos avançados", "Coleções", KindLesson},
		{"generics", "Tópicos avançados", "Generics", KindLesson},
		{"lambdas", "Tópicos avançados", "Lambdas e streams", KindExercise},
		{"quiz-avancado", "Tópicos avançados", "Quiz: tópicos avançados", KindQuiz},
	}

	lessons := make([]Lesson, 0, len(entries))
	for i, e := range entries {
		lessons = append(lessons, Lesson{Slug: e.slug, Module: e.module, Title: e.title, Kind: e.kind, Position: i + 1})
	}
	return lessons
}
