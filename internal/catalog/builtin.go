package catalog

import (
	"fmt"
	"sync"
)

type categoryDef struct {
	slug, title, summary string
	topicNames           []string
}

var builtinDefs = []categoryDef{
	{"dsa", "Data Structures & Algorithms", "Learn DSA topic", []string{
		"Introduction to DSA", "Arrays", "Linked Lists", "Stacks", "Queues", "Trees", "Graphs", "Hashing", "Sorting", "Searching"}},
	{"web", "Web Development", "Web development topic", []string{
		"HTML Basics", "CSS Fundamentals", "Responsive Design", "JavaScript Essentials", "TypeScript", "React Basics", "Next.js", "Node.js & Express", "REST APIs", "Authentication"}},
	{"python", "Python Programming", "Python programming topic", []string{
		"Introduction to Python", "Control Flow", "Functions", "Collections", "OOP in Python", "File I/O", "Error Handling", "Modules & Packages", "Virtual Environments", "Asyncio"}},
	{"java", "Java Programming", "Java programming topic", []string{
		"Java Basics", "OOP in Java", "Collections Framework", "Generics", "Streams & Lambdas", "Exception Handling", "I/O & NIO", "Multithreading", "JDBC", "Spring Boot Intro"}},
	{"os", "Operating Systems", "Operating systems topic", []string{
		"Introduction to OS", "Processes & Threads", "CPU Scheduling", "Synchronization", "Deadlocks", "Memory Management", "Virtual Memory", "File Systems", "I/O Systems", "Linux Basics"}},
	{"cn", "Computer Networks", "Computer networks topic", []string{
		"OSI Model", "TCP/IP Suite", "IP Addressing", "Routing Basics", "DNS & HTTP", "Transport Layer", "Congestion Control", "Wireless Networks", "Network Security", "CDN & Caching"}},
	{"ml", "Machine Learning", "Machine learning topic", []string{
		"ML Overview", "Supervised Learning", "Unsupervised Learning", "Model Evaluation", "Feature Engineering", "Linear Models", "Tree-Based Models", "Clustering", "Dimensionality Reduction", "Intro to Neural Nets"}},
	{"devops", "DevOps & Cloud", "DevOps topic", []string{
		"Git & GitHub", "CI/CD Basics", "Docker", "Kubernetes Intro", "Infrastructure as Code", "Monitoring & Logging", "Cloud Fundamentals", "AWS Basics", "GCP Basics", "Azure Basics"}},
	{"cpp", "C++ Programming", "C++ programming topic", []string{
		"C++ Basics", "Pointers & References", "OOP in C++", "STL Vectors & Arrays", "STL Maps & Sets", "Templates", "Move Semantics", "Memory Management", "File I/O", "Concurrency Basics"}},
	{"dbms", "Database Systems", "DBMS topic", []string{
		"Relational Model", "SQL Basics", "Joins & Subqueries", "Indexes", "Transactions & ACID", "Normalization", "NoSQL Overview", "MongoDB Basics", "PostgreSQL Features", "Query Optimization"}},
}

var difficultyCycle = [...]Difficulty{Beginner, Intermediate, Advanced}

var dsaIntroSections = []Section{
	{ID: "introduction", Title: "Introduction", Content: "What is DSA? Why complexity matters, how to analyze algorithms."},
	{ID: "big-o-notation", Title: "Big O Notation", Content: "Upper bound analysis with examples for arrays, loops, nested loops."},
	{ID: "big-omega", Title: "Big Omega", Content: "Lower bound best-case analysis and when it is useful."},
	{ID: "theta-notation", Title: "Theta Notation", Content: "Tight bound and how to prove it with examples."},
	{ID: "best-average-worst", Title: "Best / Average / Worst", Content: "Comparing cases for common algorithms and what to report in interviews."},
}

var (
	builtinOnce    sync.Once
	builtinCatalog *Catalog
)

// Builtin returns the static tutorial catalog shipped with the binary.
func Builtin() *Catalog {
	builtinOnce.Do(func() {
		cats := make([]Category, 0, len(builtinDefs))
		for _, def := range builtinDefs {
			cats = append(cats, Category{
				Slug:   def.slug,
				Title:  def.title,
				Topics: makeTopics(def.slug, def.topicNames, def.summary),
			})
		}
		builtinCatalog = New(cats)
	})
	return builtinCatalog
}

func makeTopics(category string, names []string, summaryPrefix string) []Topic {
	topics := make([]Topic, 0, len(names))
	for idx, name := range names {
		t := Topic{
			Slug:       Slugify(name),
			Title:      name,
			Summary:    fmt.Sprintf("%s — %s.", summaryPrefix, name),
			Difficulty: difficultyCycle[idx%len(difficultyCycle)],
			ReadTime:   fmt.Sprintf("%d min", 8+idx%7),
			Sections:   makeSections("Introduction", "Core Concepts", "Examples"),
		}
		if category == "dsa" && t.Slug == "introduction-to-dsa" {
			t.Sections = append([]Section(nil), dsaIntroSections...)
		}
		topics = append(topics, t)
	}
	return topics
}

func makeSections(titles ...string) []Section {
	sections := make([]Section, 0, len(titles))
	for _, title := range titles {
		sections = append(sections, Section{
			ID:      Slugify(title),
			Title:   title,
			Content: title + " — detailed explanation with examples and notes.",
		})
	}
	return sections
}
