package envfile

import "fmt"

// GetValue returns the value of one variable in the file. found is false
// when the file or the variable does not exist.
func GetValue(path, name string) (value string, found bool, err error) {
	lines, err := ReadAll(path)
	if err != nil {
		return "", false, err
	}
	value, found = ExtractVariables(lines)[name]
	return value, found, nil
}

// Store writes a variable into the file, updating the existing line in place
// or appending a new one. With skipIfExists set, an existing variable is
// left untouched.
func Store(path, name, value string, skipIfExists bool) error {
	if name == "" {
		return fmt.Errorf("variable name must not be empty")
	}

	lines, err := ReadAll(path)
	if err != nil {
		return err
	}

	if _, exists := ExtractVariables(lines)[name]; exists {
		if skipIfExists {
			return nil
		}
		lines = UpdateMany(lines, map[string]string{name: value})
	} else {
		lines = append(lines, name+"="+value)
	}

	return WriteAll(path, lines)
}
