// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ModuleNotFoundId Id = iota + 1
	ModuleIndexUnavailableId
	PermissionDeniedId
	ModuleBusyId
	ModuleNotLoadedId
	ModuleBuiltinId
	ModuleExistsId
	InvalidModuleFormatId
	UnknownSymbolId
	DependencyCycleId
	ConfigLoadFailedId
	PlatformNotSupportedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // manual pages for the operation that failed
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range append(slices.Clone(i.docLinks), i.extLinks...) {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(sb.String(), stylePath)
}

const (
	insmodMan  HttpLink = "https://man7.org/linux/man-pages/man8/insmod.8.html"
	rmmodMan   HttpLink = "https://man7.org/linux/man-pages/man8/rmmod.8.html"
	modinfoMan HttpLink = "https://man7.org/linux/man-pages/man8/modinfo.8.html"
	depmodMan  HttpLink = "https://man7.org/linux/man-pages/man8/depmod.8.html"
	depFileMan HttpLink = "https://man7.org/linux/man-pages/man5/modules.dep.5.html"
	initMan    HttpLink = "https://man7.org/linux/man-pages/man2/init_module.2.html"
	deleteMan  HttpLink = "https://man7.org/linux/man-pages/man2/delete_module.2.html"
)

var (
	render = glamour.Render

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found!

No module file, alias or built-in module matches the name you gave.

## Things you can try:
- Check the spelling; '-' and '_' are interchangeable in module names
- Make sure the module was built for the kernel you are targeting:
~~~
$ ls /lib/modules/$(uname -r)
~~~

- Rebuild the module index after installing new modules:
~~~
$ depmod -a
~~~`,
		docLinks: []HttpLink{modinfoMan, depmodMan},
	}

	moduleIndexUnavailableIssue = &Issue{
		id: ModuleIndexUnavailableId,
		mdMsg: `
# Module index unavailable!

The module databases under lib/modules/<release> could not be read.

## Things you can try:
- Pass the release explicitly if you are not inspecting the running kernel:
~~~
$ kmodule modinfo -k 6.1.0-18-amd64 ext4
~~~

- Point --basedir at the root of another system image
- Regenerate modules.dep and its companions:
~~~
$ depmod -a
~~~`,
		docLinks: []HttpLink{depmodMan, depFileMan},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

Loading and unloading kernel modules requires the CAP_SYS_MODULE capability.

## Common causes:
- Running as an unprivileged user
- Module loading disabled through /proc/sys/kernel/modules_disabled
- A lockdown or signature policy rejecting the module

## Things you can try:
- Re-run the command with elevated privileges:
~~~
$ sudo kmodule insmod ./my_driver.ko
~~~`,
		docLinks: []HttpLink{initMan, deleteMan},
		extLinks: []HttpLink{"https://docs.kernel.org/admin-guide/module-signing.html"},
	}

	moduleBusyIssue = &Issue{
		id: ModuleBusyId,
		mdMsg: `
# Module in use!

Other modules or processes still hold a reference to the module.

## Things you can try:
- Remove the holders first; they are listed under /sys/module/<name>/holders
- Wait for the module to become unused:
~~~
$ kmodule rmmod --wait <name>
~~~

- Force the removal (this can crash the kernel):
~~~
$ kmodule rmmod --force <name>
~~~`,
		docLinks: []HttpLink{rmmodMan, deleteMan},
	}

	moduleNotLoadedIssue = &Issue{
		id: ModuleNotLoadedId,
		mdMsg: `
# Module not loaded!

The module is known but is not currently loaded into the kernel.

## Things you can try:
- List the loaded modules:
~~~
$ kmodule lsmod
~~~`,
		docLinks: []HttpLink{rmmodMan},
	}

	moduleBuiltinIssue = &Issue{
		id: ModuleBuiltinId,
		mdMsg: `
# Module is built in!

The module is compiled into the kernel image and cannot be removed.

## Things you can try:
- Rebuild the kernel with the option set to 'm' to make it loadable
- Check modules.builtin for the list of built-in modules`,
		docLinks: []HttpLink{rmmodMan, depFileMan},
	}

	moduleExistsIssue = &Issue{
		id: ModuleExistsId,
		mdMsg: `
# Module already loaded!

A module with the same name is already loaded.

## Things you can try:
- Remove the loaded copy first:
~~~
$ kmodule rmmod <name>
~~~`,
		docLinks: []HttpLink{insmodMan, initMan},
	}

	invalidModuleFormatIssue = &Issue{
		id: InvalidModuleFormatId,
		mdMsg: `
# Invalid module format!

The kernel rejected the module image.

## Common causes:
- The module was built for a different kernel version
- The module is not signed and signature enforcement is active
- The file is truncated or uses an unsupported compression

## Things you can try:
- Inspect the vermagic string and compare it with 'uname -r':
~~~
$ kmodule modinfo -F vermagic ./my_driver.ko
~~~`,
		docLinks: []HttpLink{insmodMan, initMan},
		extLinks: []HttpLink{"https://docs.kernel.org/admin-guide/module-signing.html"},
	}

	unknownSymbolIssue = &Issue{
		id: UnknownSymbolId,
		mdMsg: `
# Unknown symbol in module!

The module references symbols that no loaded module exports.

## Things you can try:
- Load the module's dependencies first; they are listed by:
~~~
$ kmodule modinfo -F depends ./my_driver.ko
~~~

- Check the kernel log for the missing symbol names:
~~~
$ dmesg | tail
~~~`,
		docLinks: []HttpLink{insmodMan, depmodMan},
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

modules.dep lists modules that depend on each other in a loop.

## Things you can try:
- Regenerate the module index:
~~~
$ depmod -a
~~~

- Report the cycle to the module maintainers`,
		docLinks: []HttpLink{depmodMan, depFileMan},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

There was an error loading the kmodule configuration file.

## Things you can try:
- Check the syntax of your config file
- Print the defaults as a reference:
~~~
$ kmodule config show
~~~

- Create a fresh config file:
~~~
$ kmodule config init
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	platformNotSupportedIssue = &Issue{
		id: PlatformNotSupportedId,
		mdMsg: `
# Platform not supported!

Loading and unloading modules only works on Linux.

## Things you can try:
- Use 'kmodule modinfo' with --basedir to inspect a module tree offline
- Run the command on the Linux host itself`,
		docLinks: []HttpLink{modinfoMan},
	}

	issues = map[Id]*Issue{
		moduleNotFoundIssue.Id():         moduleNotFoundIssue,
		moduleIndexUnavailableIssue.Id(): moduleIndexUnavailableIssue,
		permissionDeniedIssue.Id():       permissionDeniedIssue,
		moduleBusyIssue.Id():             moduleBusyIssue,
		moduleNotLoadedIssue.Id():        moduleNotLoadedIssue,
		moduleBuiltinIssue.Id():          moduleBuiltinIssue,
		moduleExistsIssue.Id():           moduleExistsIssue,
		invalidModuleFormatIssue.Id():    invalidModuleFormatIssue,
		unknownSymbolIssue.Id():          unknownSymbolIssue,
		dependencyCycleIssue.Id():        dependencyCycleIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		platformNotSupportedIssue.Id():   platformNotSupportedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
