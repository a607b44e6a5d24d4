package scripting

import (
	"github.com/dop251/goja"
)

// filesystemObject builds the "filesystem" global
func (r *Runtime) filesystemObject() *goja.Object {
	obj := r.vm.NewObject()

	_ = obj.Set("read", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		size := int64(-1)
		if arg := call.Argument(1); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
			size = arg.ToInteger()
		}
		data, err := r.fsys.Read(name, size)
		if err != nil {
			r.throw("read", name, err)
		}
		return r.vm.ToValue(data.String())
	})

	_ = obj.Set("write", func(name, data string) bool {
		if err := r.fsys.Write(name, []byte(data)); err != nil {
			r.throw("write", name, err)
		}
		return true
	})

	_ = obj.Set("append", func(name, data string) bool {
		if err := r.fsys.Append(name, []byte(data)); err != nil {
			r.throw("append", name, err)
		}
		return true
	})

	_ = obj.Set("lines", func(name string) []string {
		lines, err := r.fsys.Lines(name)
		if err != nil {
			r.throw("lines", name, err)
		}
		return lines
	})

	_ = obj.Set("exists", r.fsys.Exists)

	_ = obj.Set("getInfo", func(name string) goja.Value {
		info, ok := r.fsys.Info(name)
		if !ok {
			return goja.Null()
		}
		return r.vm.ToValue(map[string]interface{}{
			"type":     info.Type.String(),
			"size":     info.Size,
			"modtime":  info.ModTime.Unix(),
			"readonly": info.ReadOnly,
		})
	})

	_ = obj.Set("getDirectoryItems", func(dir string) []string {
		items, ok := r.fsys.DirectoryItems(dir)
		if !ok {
			return []string{}
		}
		return items
	})

	_ = obj.Set("createDirectory", func(name string) bool {
		if err := r.fsys.CreateDirectory(name); err != nil {
			r.throw("createDirectory", name, err)
		}
		return true
	})

	_ = obj.Set("remove", func(name string) bool {
		if err := r.fsys.Remove(name); err != nil {
			r.throw("remove", name, err)
		}
		return true
	})

	_ = obj.Set("getIdentity", r.fsys.Identity)

	_ = obj.Set("setIdentity", func(name string) {
		if err := r.fsys.SetIdentity(name, false); err != nil {
			r.throw("setIdentity", name, err)
		}
	})

	_ = obj.Set("getRequirePath", r.fsys.RequirePath)
	_ = obj.Set("setRequirePath", r.fsys.SetRequirePath)

	return obj
}
