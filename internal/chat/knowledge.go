package chat

// errorFamily describes one interpreter error class the assistant recognises
// in pasted error messages.
type errorFamily struct {
	name      string
	keywords  []string
	solutions []string
	example   string
}

// errorIndicators gate error detection: without one of them a message is
// never treated as an error report.
var errorIndicators = []string{"error", "traceback", "exception", "line", "file"}

// genericErrorWords trigger the generic error answer when no family matched.
var genericErrorWords = []string{"error", "traceback", "exception"}

// errorFamilies are tried in order; the first with a matching keyword wins.
var errorFamilies = []errorFamily{
	{
		name:     "SyntaxError",
		keywords: []string{"syntaxerror", "invalid syntax", "unexpected token", "missing colon"},
		solutions: []string{
			"Check for missing colons (:) after if, for, while, def, class statements",
			"Ensure proper indentation (use 4 spaces or 1 tab consistently)",
			"Check for missing or mismatched parentheses, brackets, or quotes",
			"Make sure you're not using Python keywords as variable names",
		},
		example: "# Correct syntax:\nif x > 5:\n    print('Greater than 5')\n\nfor i in range(3):\n    print(i)",
	},
	{
		name:     "IndentationError",
		keywords: []string{"indentationerror", "expected an indented block", "unindent", "indentation"},
		solutions: []string{
			"Use consistent indentation (4 spaces recommended)",
			"Make sure code blocks after if, for, while, def are indented",
			"Don't mix tabs and spaces - choose one and stick with it",
			"Check that all lines in the same block have the same indentation level",
		},
		example: "# Correct indentation:\nif True:\n    print('This is indented')\n    print('This too')\nprint('This is not indented')",
	},
	{
		name:     "NameError",
		keywords: []string{"nameerror", "name is not defined", "not defined"},
		solutions: []string{
			"Make sure you've defined the variable before using it",
			"Check for typos in variable names (Python is case-sensitive)",
			"Ensure you've imported necessary modules",
			"Variables defined inside functions are only available inside those functions",
		},
		example: "# Correct usage:\nname = 'Alice'  # Define first\nprint(name)     # Then use",
	},
	{
		name:     "TypeError",
		keywords: []string{"typeerror", "unsupported operand", "not callable", "takes", "arguments"},
		solutions: []string{
			"Check that you're using the right data types for operations",
			"Make sure you're calling functions with the correct number of arguments",
			"Convert data types when necessary (int(), str(), float())",
			"Check if you're trying to call something that isn't a function",
		},
		example: "# Type conversion:\nage = int(input('Enter age: '))  # Convert string to int\nresult = str(age) + ' years old'  # Convert int to string",
	},
	{
		name:     "IndexError",
		keywords: []string{"indexerror", "list index out of range", "string index out of range"},
		solutions: []string{
			"Check that your index is within the valid range (0 to len(list)-1)",
			"Use len() to check the size of your list/string before accessing",
			"Remember that Python uses 0-based indexing",
			"Use try-except blocks to handle potential index errors",
		},
		example: "# Safe indexing:\nmy_list = [1, 2, 3]\nif len(my_list) > 2:\n    print(my_list[2])  # Safe access",
	},
	{
		name:     "ValueError",
		keywords: []string{"valueerror", "invalid literal", "could not convert"},
		solutions: []string{
			"Check that you're converting the right type of data",
			"Validate user input before converting",
			"Use try-except blocks to handle conversion errors",
			"Make sure the string contains a valid number when converting to int/float",
		},
		example: "# Safe conversion:\ntry:\n    num = int(input('Enter number: '))\nexcept ValueError:\n    print('Please enter a valid number')",
	},
	{
		name:     "AttributeError",
		keywords: []string{"attributeerror", "has no attribute", "object has no attribute"},
		solutions: []string{
			"Check that the object has the method/attribute you're trying to use",
			"Make sure you're calling methods on the right type of object",
			"Check for typos in method/attribute names",
			"Verify that you've imported the necessary modules",
		},
		example: "# Check object type:\nmy_string = 'hello'\nprint(my_string.upper())  # String method\n\nmy_list = [1, 2, 3]\nmy_list.append(4)  # List method",
	},
	{
		name:     "KeyError",
		keywords: []string{"keyerror", "key not found"},
		solutions: []string{
			"Check that the key exists in the dictionary before accessing",
			"Use dict.get() method with a default value",
			"Use 'in' operator to check if key exists",
			"Check for typos in key names",
		},
		example: "# Safe dictionary access:\nmy_dict = {'name': 'Alice', 'age': 25}\n# Method 1:\nif 'name' in my_dict:\n    print(my_dict['name'])\n# Method 2:\nprint(my_dict.get('height', 'Not specified'))",
	},
}

const errorTips = "\n\n🔧 **Quick Fix Tips:**\n" +
	"• Read the error message carefully - it tells you the line number\n" +
	"• Check the exact line mentioned in the error\n" +
	"• Look at the lines just before the error too\n" +
	"• Test your fix with a simple example first"

const genericErrorText = "🐛 **I see you're having a Python error!**\n\n" +
	"To help you better, please:\n\n" +
	"1. **Copy the full error message** (including the traceback)\n" +
	"2. **Share the problematic code** if possible\n" +
	"3. **Tell me what you were trying to do**\n\n" +
	"🔍 **Common debugging steps:**\n" +
	"• Read the error message carefully\n" +
	"• Check the line number mentioned\n" +
	"• Look for typos and syntax issues\n" +
	"• Ensure proper indentation\n" +
	"• Verify variable names are spelled correctly\n\n" +
	"Paste the complete error message and I'll give you specific help!"

var motivationalQuotes = []string{
	"Great job! Keep coding and learning!",
	"Every expert was once a beginner. You're doing great!",
	"Debugging is like being a detective. You've got this!",
	"Code is poetry written in logic. Keep creating!",
	"The best way to learn programming is by programming!",
	"Errors are not failures, they're learning opportunities!",
	"Programming is thinking, not typing. Take your time!",
	"Every line of code you write makes you a better programmer!",
}

type faqEntry struct {
	question string
	answer   string
}

// faqs are matched in order by substring.
var faqs = []faqEntry{
	{"what is python", "Python is a high-level, interpreted programming language known for its simplicity and readability. It's great for beginners!"},
	{"how to start coding", "Start with simple programs like 'Hello World', then gradually work on small projects. Practice regularly!"},
	{"what is a variable", "A variable is a container that stores data values. In Python, you can create variables like: name = 'John'"},
	{"what is a function", "A function is a block of reusable code that performs a specific task. You define it with 'def' keyword."},
	{"what is a loop", "A loop is used to repeat a block of code. Python has 'for' loops and 'while' loops."},
	{"what is an if statement", "An if statement is used to make decisions in code. It executes code only if a condition is true."},
	{"how to debug code", "Debugging involves finding and fixing errors. Read error messages carefully, use print statements, and test small parts of your code."},
	{"what is syntax error", "A syntax error occurs when Python can't understand your code due to incorrect syntax. Check for typos and proper indentation."},
	{"what is indentation", "Indentation in Python is used to define code blocks. Use 4 spaces or 1 tab consistently."},
	{"how to learn faster", "Practice regularly, work on projects, read others' code, and don't be afraid to make mistakes!"},
}

// FAQKeys returns the FAQ questions in match order.
func FAQKeys() []string {
	keys := make([]string, len(faqs))
	for i, f := range faqs {
		keys[i] = f.question
	}
	return keys
}

type helpTopic struct {
	name        string
	explanation string
	example     string
	tip         string
}

// helpTopics match on the plural or the singular (name minus its last letter).
var helpTopics = []helpTopic{
	{
		name:        "variables",
		explanation: "Variables store data that can be used later in your program.",
		example:     "age = 25\nname = 'Alice'\nprint(f'{name} is {age} years old')",
		tip:         "Choose descriptive variable names and follow naming conventions.",
	},
	{
		name:        "functions",
		explanation: "Functions are reusable blocks of code that perform specific tasks.",
		example:     "def greet(name):\n    return f'Hello, {name}!'\n\nprint(greet('World'))",
		tip:         "Keep functions small and focused on one task.",
	},
	{
		name:        "loops",
		explanation: "Loops allow you to repeat code multiple times.",
		example:     "for i in range(5):\n    print(f'Count: {i}')\n\nwhile x < 10:\n    x += 1",
		tip:         "Be careful with while loops to avoid infinite loops.",
	},
	{
		name:        "conditionals",
		explanation: "Conditionals let your program make decisions based on conditions.",
		example:     "if age >= 18:\n    print('Adult')\nelse:\n    print('Minor')",
		tip:         "Use elif for multiple conditions and ensure proper indentation.",
	},
}

const (
	greetingText   = "Hello! I'm here to help you learn Python programming. Feel free to ask me questions about coding concepts, paste error messages for debugging help, or let me know if you need motivation!"
	motivationTail = " Remember, every programmer faces challenges. The key is to keep practicing and learning from mistakes!"
	helpText       = "I can help you with various Python concepts like variables, functions, loops, and conditionals. What specific topic would you like to learn about?"
	debuggingText  = "Debugging can be tricky, but here are some tips:\n1. Read the error message carefully\n2. Check your syntax and indentation\n3. Use print statements to track values\n4. Test small parts of your code\n5. Take breaks when frustrated\n\nWhat specific error are you encountering?"
	syntaxText     = "Syntax errors occur when Python can't understand your code. Common causes:\n- Missing colons (:) after if, for, while, def\n- Incorrect indentation\n- Mismatched parentheses or quotes\n- Typos in keywords\n\nAlways check these first!"
	syntaxExample  = "# Correct syntax examples:\nif x > 5:\n    print('Greater than 5')\n\nfor i in range(3):\n    print(i)"
	codingText     = "I'm here to help with your coding questions! Could you be more specific about what you'd like to learn or what problem you're facing?"
	defaultText    = "I'm here to help you with Python programming! You can ask me about variables, functions, loops, conditionals, or any other programming concepts. You can also paste Python error messages and I'll help you fix them!"
)

var suggestions = map[string][]string{
	TypeErrorHelp:   {"Show me more examples", "Explain this error type", "Help with debugging", "Test my fixed code"},
	"error_generic": {"Paste full error message", "Show me the code", "Debugging tips", "Common Python errors"},
	TypeGreeting:    {"What is Python?", "How do I start coding?", "Explain variables", "Show me a loop example", "Help with errors"},
	TypeMotivation:  {"Ask a coding question", "Get help with debugging", "Learn about functions", "Paste error message"},
	TypeHelp:        {"Try this example", "Ask about another topic", "Need more help?"},
	"help_generic":  {"Variables", "Functions", "Loops", "Conditionals", "Debugging"},
	TypeDebugging:   {"Syntax error help", "Logic error help", "Show me an example", "Motivate me"},
	TypeSyntaxHelp:  {"Show me correct examples", "Help with indentation", "Other error types"},
	TypeCoding:      {"Variables", "Functions", "Loops", "Debugging", "Syntax help"},
	TypeFAQ:         {"Ask another question", "Get a code example", "Need motivation?", "Paste error for help"},
	TypeDefault:     {"Explain variables", "Show me a function example", "What are loops?", "Help with debugging", "Paste error message", "Motivate me!"},
}
